package cmd

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/abdul-hamid-achik/ideacheck/packages/core/config"
	"github.com/abdul-hamid-achik/ideacheck/packages/core/env"
	"github.com/abdul-hamid-achik/ideacheck/packages/db"
	"github.com/abdul-hamid-achik/ideacheck/packages/suite"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	historyDBFlag      string
	historyLimitFlag   int
	historySuiteFlag   string
	historyKeepFlag    int
	historyNoColorFlag bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	Long: `List runs recorded with "ideacheck run --history", newest first.

The database defaults to history.database from the config file or
IDEACHECK_HISTORY_DB.

Examples:
  ideacheck history
  ideacheck history --db ideacheck.db --limit 5
  ideacheck history show 3f6c...
  ideacheck history prune --keep 50`,
	Args: cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if historyNoColorFlag {
			color.NoColor = true
		}
	},
	RunE: historyListCommand,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the cases of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  historyShowCommand,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest runs",
	Args:  cobra.NoArgs,
	RunE:  historyPruneCommand,
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyDBFlag, "db", "", "Path to the history database")
	historyCmd.PersistentFlags().StringVar(&historySuiteFlag, "suite", suite.Name, "Suite name")
	historyCmd.PersistentFlags().BoolVar(&historyNoColorFlag, "no-color", getEnvBool("NO_COLOR", false), "Disable colored output (env: NO_COLOR)")
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", getEnvInt("IDEACHECK_HISTORY_LIMIT", 20), "Number of runs to list (env: IDEACHECK_HISTORY_LIMIT)")
	historyPruneCmd.Flags().IntVar(&historyKeepFlag, "keep", 100, "Number of newest runs to keep")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
}

// openHistory resolves the database from the flag, IDEACHECK_HISTORY_DB or
// the config file
func openHistory() (*db.Client, error) {
	path := historyDBFlag
	if path == "" {
		cfg, err := config.LoadConfig(configFlag)
		if err != nil {
			return nil, withExitCode(ExitConfigError, err)
		}
		if err := cfg.ApplyEnv(env.LoadSystemEnv(config.EnvPrefix)); err != nil {
			return nil, withExitCode(ExitConfigError, err)
		}
		cfg.Resolve(env.NewResolver())
		path = cfg.History.Database
	}
	if path == "" {
		return nil, withExitCode(ExitConfigError, errors.New("no history database configured (use --db or history.database)"))
	}

	client, err := db.NewClient(path)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	return client, nil
}

func historyListCommand(cmd *cobra.Command, args []string) error {
	client, err := openHistory()
	if err != nil {
		return err
	}
	defer client.Close()

	runs, err := client.ListRuns(cmd.Context(), historySuiteFlag, historyLimitFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	// Status goes last so color codes do not skew column widths
	tw := tabwriter.NewWriter(out, 2, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tTARGET\tPASSED\tFAILED\tSKIPPED\tDURATION\tP95\tSTATUS")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%.1fms\t%s\n",
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.BaseURL,
			run.Passed,
			run.Failed,
			run.Skipped,
			(time.Duration(run.DurationMs) * time.Millisecond).String(),
			run.P95Ms,
			statusLabel(run.Success),
		)
	}
	return tw.Flush()
}

func historyShowCommand(cmd *cobra.Command, args []string) error {
	client, err := openHistory()
	if err != nil {
		return err
	}
	defer client.Close()

	run, err := client.GetRun(cmd.Context(), args[0])
	if errors.Is(err, db.ErrNotFound) {
		return withExitCode(ExitUsageError, fmt.Errorf("run %s not found", args[0]))
	}
	if err != nil {
		return err
	}

	printRun(cmd.OutOrStdout(), run)
	return nil
}

func printRun(out io.Writer, run *db.RunRecord) {
	fmt.Fprintf(out, "Run %s  %s\n", run.ID, statusLabel(run.Success))
	fmt.Fprintf(out, "Suite:   %s\n", run.Suite)
	fmt.Fprintf(out, "Target:  %s (token: %s)\n", run.BaseURL, run.TokenSource)
	fmt.Fprintf(out, "Started: %s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "Latency: p50 %.1fms, p95 %.1fms, p99 %.1fms\n\n", run.P50Ms, run.P95Ms, run.P99Ms)

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	for _, c := range run.Cases {
		switch c.Status {
		case db.StatusPassed:
			fmt.Fprintf(out, "  %s %d. %s (%dms)\n", green("✓"), c.Order, c.Name, c.DurationMs)
		case db.StatusSkipped:
			fmt.Fprintf(out, "  %s %d. %s\n", yellow("-"), c.Order, c.Name)
		default:
			fmt.Fprintf(out, "  %s %d. %s (%dms, status %d)\n", red("✗"), c.Order, c.Name, c.DurationMs, c.StatusCode)
			if c.Error != "" {
				fmt.Fprintf(out, "      %s\n", c.Error)
			}
		}
	}

	if run.TeardownError != "" {
		fmt.Fprintf(out, "\nTeardown: %s\n", red(run.TeardownError))
	}
	fmt.Fprintf(out, "\n%d passed, %d failed, %d skipped\n", run.Passed, run.Failed, run.Skipped)
}

func historyPruneCommand(cmd *cobra.Command, args []string) error {
	if historyKeepFlag < 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("--keep must not be negative"))
	}

	client, err := openHistory()
	if err != nil {
		return err
	}
	defer client.Close()

	n, err := client.Prune(cmd.Context(), historySuiteFlag, historyKeepFlag)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d run(s), kept the newest %d.\n", n, historyKeepFlag)
	return nil
}

func statusLabel(success bool) string {
	if success {
		return color.GreenString("PASS")
	}
	return color.RedString("FAIL")
}
