package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/ideacheck/packages/core/config"
	"github.com/abdul-hamid-achik/ideacheck/packages/core/env"
	"github.com/abdul-hamid-achik/ideacheck/packages/core/runner"
	"github.com/abdul-hamid-achik/ideacheck/packages/db"
	ihttp "github.com/abdul-hamid-achik/ideacheck/packages/http"
	"github.com/abdul-hamid-achik/ideacheck/packages/notify"
	"github.com/abdul-hamid-achik/ideacheck/packages/output"
	"github.com/abdul-hamid-achik/ideacheck/packages/suite"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Idea API acceptance suite",
	Long: `Run the seven ordered Idea API cases against a service.

Settings are read from ideacheck.yaml (or --config), then from .env and
IDEACHECK_* environment variables, then from flags.

Examples:
  ideacheck run --base-url http://localhost:5000 --token $TOKEN
  ideacheck run --email qa@example.com --password secret
  ideacheck run --name "*NonExisting*" -v
  ideacheck run -o junit --output-file report.xml
  ideacheck run --history ideacheck.db --notify slack --webhook $SLACK_WEBHOOK
  ideacheck run --watch`,
	Args: cobra.NoArgs,
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond

	notifyTimeout = 10 * time.Second
)

var (
	configFlag          string
	envFileFlag         string
	baseURLFlag         string
	tokenFlag           string
	emailFlag           string
	passwordFlag        string
	nameFlag            string
	verboseFlag         int
	noColorFlag         bool
	bailFlag            bool
	timeoutFlag         string
	rateFlag            float64
	waitFlag            string
	proxyFlag           string
	insecureFlag        bool
	validateSchemasFlag bool
	cleanupFlag         bool
	outputFlag          string
	outputFileFlag      string
	historyFlag         string
	notifyFlag          string
	notifyOnFlag        string
	webhookFlag         string
	watchFlag           bool
)

func init() {
	// Source flags
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("IDEACHECK_CONFIG", ""), "Path to config file (env: IDEACHECK_CONFIG)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("IDEACHECK_ENV_FILE", ""), "Path to .env file (default: .env when present) (env: IDEACHECK_ENV_FILE)")

	// Target flags
	runCmd.Flags().StringVar(&baseURLFlag, "base-url", "", "Base URL of the Idea service")
	runCmd.Flags().StringVar(&tokenFlag, "token", "", "Static bearer token; skips login")
	runCmd.Flags().StringVar(&emailFlag, "email", "", "Login email, used when no token is set")
	runCmd.Flags().StringVar(&passwordFlag, "password", "", "Login password, used when no token is set")

	// Execution flags
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only cases matching name pattern (e.g. \"*NonExisting*\")")
	runCmd.Flags().BoolVar(&bailFlag, "bail", getEnvBool("IDEACHECK_BAIL", false), "Skip remaining cases after the first failure (env: IDEACHECK_BAIL)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", "", "Request timeout (e.g., 30s, 1m)")
	runCmd.Flags().Float64Var(&rateFlag, "rate", 0, "Maximum requests per second (0 = unlimited)")
	runCmd.Flags().StringVar(&waitFlag, "wait", "", "Wait up to this long for the service to answer before setup (e.g., 30s)")
	runCmd.Flags().BoolVar(&validateSchemasFlag, "validate-schemas", false, "Also validate success responses against JSON schemas")
	runCmd.Flags().BoolVar(&cleanupFlag, "cleanup", getEnvBool("IDEACHECK_CLEANUP", false), "Delete the captured idea during teardown if it still exists (env: IDEACHECK_CLEANUP)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Re-run when the config or .env file changes")

	// Network flags
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("IDEACHECK_PROXY", ""), "Proxy URL for HTTP requests (env: IDEACHECK_PROXY)")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("IDEACHECK_INSECURE", false), "Disable SSL certificate validation (env: IDEACHECK_INSECURE)")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("NO_COLOR", false), "Disable colored output (env: NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("IDEACHECK_OUTPUT", ""), "Output format: "+strings.Join(output.Names, ", ")+" (env: IDEACHECK_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("IDEACHECK_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: IDEACHECK_OUTPUT_FILE)")

	// History and notification flags
	runCmd.Flags().StringVar(&historyFlag, "history", "", "SQLite database to record runs in")
	runCmd.Flags().StringVar(&notifyFlag, "notify", getEnvString("IDEACHECK_NOTIFY", ""), "Notification service: slack, teams (env: IDEACHECK_NOTIFY)")
	runCmd.Flags().StringVar(&notifyOnFlag, "notify-on", getEnvString("IDEACHECK_NOTIFY_ON", ""), "When to notify: always, failure, success, recovery (env: IDEACHECK_NOTIFY_ON)")
	runCmd.Flags().StringVar(&webhookFlag, "webhook", getEnvString("IDEACHECK_WEBHOOK", ""), "Notification webhook URL (env: IDEACHECK_WEBHOOK)")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func runCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, sources, err := loadRunConfig(cmd.Flags().Changed)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	session, err := newRunSession(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	defer session.Close()

	err = session.execute(ctx, cfg)
	if !watchFlag {
		return err
	}
	if err != nil && exitCode(err) != ExitTestFailure {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	return watch(ctx, cmd, session, sources)
}

// loadRunConfig layers defaults, the config file, .env, IDEACHECK_*
// variables and flags, in that order. It also returns the files it read so
// watch mode can follow them.
func loadRunConfig(changed func(name string) bool) (*config.Config, []string, error) {
	configPath := configFlag
	if configPath == "" {
		configPath = config.FindConfigFile(".")
	}

	cfg := config.DefaultConfig()
	if configPath != "" {
		fileCfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = cfg.Merge(fileCfg)
	}

	envPath := envFileFlag
	if envPath == "" {
		if _, err := os.Stat(".env"); err == nil {
			envPath = ".env"
		}
	}

	var dotenv map[string]string
	if envPath != "" {
		var err error
		if dotenv, err = env.LoadDotEnv(envPath); err != nil {
			return nil, nil, err
		}
	}

	// Process variables win over .env entries
	prefixed := env.MergeVariables(env.StripPrefix(dotenv, config.EnvPrefix), env.LoadSystemEnv(config.EnvPrefix))
	if err := cfg.ApplyEnv(prefixed); err != nil {
		return nil, nil, err
	}

	overlay, err := flagOverlay(changed)
	if err != nil {
		return nil, nil, err
	}
	cfg = cfg.Merge(overlay)

	resolver := env.NewResolver()
	resolver.SetVariables(dotenv)
	resolver.SetWarnFunc(func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
	})
	cfg.Resolve(resolver)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	var sources []string
	if configPath != "" {
		sources = append(sources, configPath)
	} else {
		sources = append(sources, config.ConfigFilenames[0])
	}
	if envPath != "" {
		sources = append(sources, envPath)
	} else {
		sources = append(sources, ".env")
	}
	return cfg, sources, nil
}

// flagOverlay turns explicitly set flags into a config that wins over every
// other source
func flagOverlay(changed func(name string) bool) (*config.Config, error) {
	overlay := &config.Config{
		BaseURL:    baseURLFlag,
		Token:      tokenFlag,
		Email:      emailFlag,
		Password:   passwordFlag,
		RateLimit:  rateFlag,
		Proxy:      proxyFlag,
		OutputFile: outputFileFlag,
		Filter:     nameFlag,
		History:    config.HistoryConfig{Database: historyFlag},
		Notify: config.NotifyConfig{
			Type:    notifyFlag,
			Webhook: webhookFlag,
			On:      notifyOnFlag,
		},
	}

	if timeoutFlag != "" {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
		}
		overlay.Timeout = int(d.Milliseconds())
	}
	if waitFlag != "" {
		d, err := time.ParseDuration(waitFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid wait value %q: %w", waitFlag, err)
		}
		overlay.WaitTimeout = int(d.Milliseconds())
	}
	if outputFlag != "" {
		overlay.Reporters = []string{outputFlag}
	}

	if changed("bail") || bailFlag {
		overlay.Bail = config.BoolPtr(bailFlag)
	}
	if verboseFlag > 0 {
		overlay.Verbose = config.BoolPtr(true)
	}
	if changed("no-color") || noColorFlag {
		overlay.NoColor = config.BoolPtr(noColorFlag)
	}
	if insecureFlag {
		overlay.ValidateSSL = config.BoolPtr(false)
	}
	if changed("validate-schemas") {
		overlay.ValidateSchemas = config.BoolPtr(validateSchemasFlag)
	}
	return overlay, nil
}

func runnerConfig(cfg *config.Config) *runner.Config {
	return &runner.Config{
		BaseURL:        cfg.BaseURL,
		StaticToken:    cfg.Token,
		Email:          cfg.Email,
		Password:       cfg.Password,
		Timeout:        cfg.GetTimeout(),
		FollowRedirect: cfg.GetFollowRedirects(),
		ValidateSSL:    cfg.GetValidateSSL(),
		Proxy:          cfg.Proxy,
		DefaultHeaders: cfg.Headers,
		RateLimit:      cfg.RateLimit,
		Bail:           cfg.GetBail(),
		NameFilter:     cfg.Filter,
		Verbose:        cfg.GetVerbose(),
		WaitTimeout:    cfg.GetWaitTimeout(),
	}
}

func reporterName(cfg *config.Config) string {
	if len(cfg.Reporters) > 0 && cfg.Reporters[0] != "" {
		return strings.ToLower(cfg.Reporters[0])
	}
	return "console"
}

// runSession holds what outlives a single run: the history database and the
// notification state used to detect recoveries.
type runSession struct {
	out      io.Writer
	history  *db.Client
	notifier *notify.Manager
	client   *ihttp.Client
}

func newRunSession(ctx context.Context, cfg *config.Config, out io.Writer) (*runSession, error) {
	s := &runSession{out: out}

	if path := cfg.History.Database; path != "" {
		client, err := db.NewClient(path)
		if err != nil {
			return nil, fmt.Errorf("cannot open run history: %w", err)
		}
		s.history = client
	}

	if kind := cfg.Notify.Type; kind != "" {
		on, err := notify.ParseNotifyOn(cfg.Notify.On)
		if err != nil {
			s.Close()
			return nil, err
		}

		opts := []ihttp.ClientOption{ihttp.WithTimeout(notifyTimeout)}
		if cfg.Proxy != "" {
			opts = append(opts, ihttp.WithProxy(cfg.Proxy))
		}
		s.client = ihttp.NewClient(opts...)

		n, err := notify.New(strings.ToLower(kind), cfg.Notify.Webhook, s.client)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.notifier = notify.NewManager(on, n)

		// Seed recovery detection from the previous recorded run
		if s.history != nil {
			last, err := s.history.LastRun(ctx, suite.Name)
			switch {
			case err == nil:
				s.notifier.SetLastState(last.Success)
			case !errors.Is(err, db.ErrNotFound):
				fmt.Fprintf(os.Stderr, "warning: cannot read last run: %v\n", err)
			}
		}
	}

	return s, nil
}

func (s *runSession) Close() {
	if s.history != nil {
		_ = s.history.Close()
	}
	if s.client != nil {
		s.client.Close()
	}
}

// execute performs one run and reports it. The returned error carries the
// exit code for the run.
func (s *runSession) execute(ctx context.Context, cfg *config.Config) error {
	w := s.out
	if cfg.OutputFile != "" {
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			return withExitCode(ExitConfigError, fmt.Errorf("cannot create output file: %w", err))
		}
		defer f.Close()
		w = f
	}

	formatter, err := output.New(reporterName(cfg), w, output.Options{
		Verbose: cfg.GetVerbose(),
		NoColor: cfg.GetNoColor(),
	})
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	formatter.FormatHeader(version)

	r := runner.NewRunner(runnerConfig(cfg), suite.Name, suite.IdeaCases(suite.Options{
		ValidateSchemas: cfg.GetValidateSchemas(),
	}))
	if cleanupFlag {
		r.AfterAll(suite.CleanupHook)
	}

	start := time.Now()
	result, err := r.Run(ctx)
	if err != nil {
		formatter.FormatError(err)
		if flushErr := flush(formatter, time.Since(start)); flushErr != nil {
			fmt.Fprintf(os.Stderr, "warning: error writing output: %v\n", flushErr)
		}
		return err
	}

	formatter.FormatResult(result)
	if err := flush(formatter, result.Duration); err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}

	s.record(ctx, result)

	if ctx.Err() != nil {
		return withExitCode(ExitTestFailure, errors.New("run interrupted"))
	}
	if !result.Success() {
		return withExitCode(ExitTestFailure, fmt.Errorf("%d of %d case(s) failed", result.Failed, len(result.Results)))
	}
	return nil
}

// record stores the run and sends notifications. Failures here never change
// the outcome of the run.
func (s *runSession) record(ctx context.Context, result *runner.RunResult) {
	ctx = context.WithoutCancel(ctx)

	if s.history != nil {
		if err := s.history.SaveRun(ctx, db.FromRunResult(result)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to record run: %v\n", err)
		}
	}

	if s.notifier != nil {
		if _, err := s.notifier.Notify(ctx, notify.SummaryFromRun(result)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to send notification: %v\n", err)
		}
	}
}

func flush(f output.Formatter, d time.Duration) error {
	if flushable, ok := f.(output.Flushable); ok {
		return flushable.Flush(d)
	}
	return nil
}

// watch re-runs the suite whenever one of paths is written. Events are
// debounced and runs never overlap.
func watch(ctx context.Context, cmd *cobra.Command, session *runSession, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	targets := make(map[string]bool)
	watchedDirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		targets[abs] = true

		dir := filepath.Dir(abs)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to watch %s: %v\n", dir, err)
			}
			watchedDirs[dir] = true
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nWatching %s for changes... (press Ctrl+C to stop)\n\n", strings.Join(paths, ", "))

	var (
		debounce *time.Timer
		fire     <-chan time.Time
		changed  string
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !targets[abs] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			changed = event.Name
			if debounce == nil {
				debounce = time.NewTimer(WatchDebounceDelay)
			} else {
				debounce.Reset(WatchDebounceDelay)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			fmt.Fprintf(out, "\n\nFile changed: %s\nRe-running tests...\n\n", changed)

			cfg, _, err := loadRunConfig(cmd.Flags().Changed)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			} else if err := session.execute(ctx, cfg); err != nil && exitCode(err) != ExitTestFailure {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}

			fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "warning: watcher error: %v\n", err)
		}
	}
}
