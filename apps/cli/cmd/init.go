package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/ideacheck/packages/core/config"
	"github.com/spf13/cobra"
)

var (
	forceInit   bool
	initBaseURL string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an ideacheck config in the current directory",
	Long: `Initialize ideacheck in the current directory.

This creates:
  - ideacheck.yaml  - Configuration file; credentials come from .env
  - .env.example    - Template for the credentials referenced by the config

Examples:
  ideacheck init
  ideacheck init --base-url https://ideas.staging.example.com --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
	initCmd.Flags().StringVar(&initBaseURL, "base-url", "http://localhost:5000", "Base URL written to the config")
}

const envExample = `# Copy to .env and fill in. Real environment variables take precedence.
IDEA_EMAIL=
IDEA_PASSWORD=

# Set to skip login and use a fixed bearer token instead
# IDEACHECK_TOKEN=
`

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, config.ConfigFilenames[0])
	envFile := filepath.Join(cwd, ".env.example")

	if !forceInit {
		for _, f := range []string{configFile, envFile} {
			if _, err := os.Stat(f); err == nil {
				return withExitCode(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.BaseURL = initBaseURL
	cfg.Email = "${IDEA_EMAIL}"
	cfg.Password = "${IDEA_PASSWORD}"
	cfg.Headers = map[string]string{"User-Agent": "ideacheck/" + version}
	cfg.History.Database = "ideacheck.db"

	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(envFile, []byte(envExample), 0644); err != nil {
		return fmt.Errorf("failed to create env template: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", envFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nideacheck initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Copy .env.example to .env, fill in the credentials and run 'ideacheck run'.\n")

	return nil
}
