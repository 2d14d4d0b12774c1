package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/ideacheck/packages/mock"
	"github.com/spf13/cobra"
)

var (
	mockPortFlag     int
	mockDelayFlag    string
	mockVerboseFlag  bool
	mockEmailFlag    string
	mockPasswordFlag string
	mockTokenFlag    string
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Start an in-memory Idea service",
	Long: `Start an HTTP server that implements the Idea API in memory.

The mock server:
- Issues a bearer token from /api/User/Authentication
- Rejects idea requests without that token
- Stores ideas in memory with generated identifiers
- Can add artificial delays to simulate network latency

Without --email and --password any non-empty credentials are accepted.

Examples:
  ideacheck mock
  ideacheck mock --port 5000 --email qa@example.com --password secret
  ideacheck mock --token local-token --delay 100ms --verbose`,
	Args: cobra.NoArgs,
	RunE: mockCommand,
}

func init() {
	mockCmd.Flags().IntVarP(&mockPortFlag, "port", "p", getEnvInt("IDEACHECK_MOCK_PORT", 5000), "Port to run the mock server on (env: IDEACHECK_MOCK_PORT)")
	mockCmd.Flags().StringVarP(&mockDelayFlag, "delay", "d", "0", "Delay to add to all responses (e.g., 100ms, 1s)")
	mockCmd.Flags().BoolVarP(&mockVerboseFlag, "verbose", "v", false, "Log every request")
	mockCmd.Flags().StringVar(&mockEmailFlag, "email", "", "Only accept this login email")
	mockCmd.Flags().StringVar(&mockPasswordFlag, "password", "", "Only accept this login password")
	mockCmd.Flags().StringVar(&mockTokenFlag, "token", "", "Bearer token to issue (default: random)")
}

func mockCommand(cmd *cobra.Command, args []string) error {
	var delay time.Duration
	if mockDelayFlag != "0" {
		var err error
		delay, err = time.ParseDuration(mockDelayFlag)
		if err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("invalid delay value %q: %w", mockDelayFlag, err))
		}
	}

	if (mockEmailFlag == "") != (mockPasswordFlag == "") {
		return withExitCode(ExitUsageError, fmt.Errorf("--email and --password must be set together"))
	}

	opts := []mock.Option{
		mock.WithPort(mockPortFlag),
		mock.WithDelay(delay),
		mock.WithVerbose(mockVerboseFlag),
	}
	if mockEmailFlag != "" {
		opts = append(opts, mock.WithCredentials(mockEmailFlag, mockPasswordFlag))
	}
	if mockTokenFlag != "" {
		opts = append(opts, mock.WithToken(mockTokenFlag))
	}
	server := mock.NewServer(opts...)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Bearer token: %s\n", server.Token())
	if mockVerboseFlag {
		fmt.Fprintln(out, "Routes:")
		for _, route := range server.GetRoutes() {
			auth := "bearer"
			if route.Public {
				auth = "public"
			}
			fmt.Fprintf(out, "  %-6s %-28s %s\n", route.Method, route.Path, auth)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		fmt.Fprintln(out, "\nShutting down mock server...")
	}()

	return server.StartWithContext(ctx)
}
