package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/abdul-hamid-achik/ideacheck/packages/assertions"
	"github.com/abdul-hamid-achik/ideacheck/packages/auth"
	"github.com/abdul-hamid-achik/ideacheck/packages/http"
	"github.com/abdul-hamid-achik/ideacheck/packages/metrics"
	"github.com/google/uuid"
)

const (
	// SkipFiltered marks cases excluded by the name filter
	SkipFiltered = "filtered out"
	// SkipBail marks cases not run because an earlier case failed with bail set
	SkipBail = "bail: earlier case failed"
	// SkipCancelled marks cases not run because the run was cancelled
	SkipCancelled = "cancelled"
)

type Runner struct {
	config   *Config
	suite    string
	cases    []*Case
	afterAll []Hook

	// diagnostics go to stderr so reports on stdout stay parseable
	diag io.Writer
}

type Config struct {
	BaseURL        string
	StaticToken    string
	Email          string
	Password       string
	Timeout        time.Duration
	FollowRedirect bool
	ValidateSSL    bool
	Proxy          string
	DefaultHeaders map[string]string
	RateLimit      float64
	Bail           bool
	NameFilter     string
	Verbose        bool
	WaitTimeout    time.Duration
	WaitInterval   time.Duration
}

// NewRunner orders cases by their Order field. Cases sharing an order keep
// their registration order.
func NewRunner(cfg *Config, suite string, cases []*Case) *Runner {
	if cfg == nil {
		cfg = &Config{}
	}

	ordered := make([]*Case, len(cases))
	copy(ordered, cases)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	return &Runner{
		config: cfg,
		suite:  suite,
		cases:  ordered,
		diag:   os.Stderr,
	}
}

// Cases returns the cases in execution order
func (r *Runner) Cases() []*Case {
	return r.cases
}

type RunResult struct {
	ID            string
	Suite         string
	BaseURL       string
	TokenSource   auth.Source
	StartedAt     time.Time
	Results       []*CaseResult
	Duration      time.Duration
	Passed        int
	Failed        int
	Skipped       int
	Latency       metrics.Summary
	TeardownError error
}

// Success reports whether every executed case passed
func (r *RunResult) Success() bool {
	return r.Failed == 0 && r.TeardownError == nil
}

type CaseResult struct {
	Name        string
	Order       int
	Description string
	Passed      bool
	Skipped     bool
	SkipReason  string
	Duration    time.Duration
	Method      string
	URL         string
	Response    *http.Response
	Assertions  []*assertions.Result
	Captures    map[string]any
	Error       error
}

func (r *Runner) clientOptions() []http.ClientOption {
	opts := []http.ClientOption{
		http.WithBaseURL(r.config.BaseURL),
		http.WithFollowRedirects(r.config.FollowRedirect),
		http.WithValidateSSL(r.config.ValidateSSL),
	}
	if r.config.Timeout > 0 {
		opts = append(opts, http.WithTimeout(r.config.Timeout))
	}
	if r.config.Proxy != "" {
		opts = append(opts, http.WithProxy(r.config.Proxy))
	}
	if len(r.config.DefaultHeaders) > 0 {
		opts = append(opts, http.WithDefaultHeaders(r.config.DefaultHeaders))
	}
	if r.config.RateLimit > 0 {
		opts = append(opts, http.WithRateLimit(r.config.RateLimit))
	}
	return opts
}

// Setup resolves the bearer token and builds the authenticated session.
// It must succeed before any case runs.
func (r *Runner) Setup(ctx context.Context) (*Session, error) {
	if r.config.BaseURL == "" {
		return nil, &auth.ConfigError{Reason: "base URL is not configured"}
	}
	if err := http.ValidateURL(r.config.BaseURL); err != nil {
		return nil, &auth.ConfigError{Reason: err.Error()}
	}

	if r.config.WaitTimeout > 0 {
		if err := r.waitForService(ctx); err != nil {
			return nil, err
		}
	}

	token, source, err := auth.ResolveToken(ctx, r.config.BaseURL, auth.Options{
		StaticToken:   r.config.StaticToken,
		Email:         r.config.Email,
		Password:      r.config.Password,
		ClientOptions: r.clientOptions(),
	})
	if err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}

	opts := append(r.clientOptions(), http.WithBearerToken(token))
	return &Session{
		BaseURL:     r.config.BaseURL,
		Token:       token,
		TokenSource: source,
		Client:      http.NewClient(opts...),
	}, nil
}

// Run performs setup, executes every case in order and tears down. The
// returned error is non-nil only when setup fails, in which case no case
// has run.
func (r *Runner) Run(ctx context.Context) (result *RunResult, err error) {
	start := time.Now()

	session, err := r.Setup(ctx)
	if err != nil {
		return nil, err
	}

	result = &RunResult{
		ID:          uuid.NewString(),
		Suite:       r.suite,
		BaseURL:     r.config.BaseURL,
		TokenSource: session.TokenSource,
		StartedAt:   start,
	}

	rc := newRunContext(session)
	defer func() {
		result.TeardownError = r.teardown(context.WithoutCancel(ctx), rc)
	}()

	latency := metrics.NewLatency()
	bailed := false

	for _, c := range r.cases {
		if !matchesPattern(c.Name, r.config.NameFilter) {
			result.Results = append(result.Results, skipped(c, SkipFiltered))
			result.Skipped++
			continue
		}

		if ctx.Err() != nil {
			result.Results = append(result.Results, skipped(c, SkipCancelled))
			result.Skipped++
			continue
		}

		if bailed {
			result.Results = append(result.Results, skipped(c, SkipBail))
			result.Skipped++
			continue
		}

		caseResult := r.runCase(ctx, c, rc)
		result.Results = append(result.Results, caseResult)
		if caseResult.Response != nil {
			latency.Record(caseResult.Response.Duration)
		}

		if caseResult.Passed {
			result.Passed++
		} else {
			result.Failed++
			if r.config.Bail {
				bailed = true
			}
		}
	}

	result.Duration = time.Since(start)
	result.Latency = latency.Summary()
	return result, nil
}

func skipped(c *Case, reason string) *CaseResult {
	return &CaseResult{
		Name:        c.Name,
		Order:       c.Order,
		Description: c.Description,
		Skipped:     true,
		SkipReason:  reason,
	}
}

func (r *Runner) runCase(ctx context.Context, c *Case, rc *RunContext) (result *CaseResult) {
	result = &CaseResult{
		Name:        c.Name,
		Order:       c.Order,
		Description: c.Description,
		Captures:    make(map[string]any),
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			result.Passed = false
			result.Error = fmt.Errorf("case %q panicked: %v", c.Name, p)
		}
		result.Duration = time.Since(start)
	}()

	out := c.Run(ctx, rc)

	result.Method = out.Method
	result.Response = out.Response
	result.Assertions = out.Assertions
	result.Error = out.Error
	if out.Response != nil {
		result.URL = out.Response.URL
	}

	for name, value := range out.Captures {
		result.Captures[name] = value
		rc.Captures[name] = value
	}

	switch {
	case out.Error != nil:
		result.Passed = false
	case len(out.Assertions) > 0:
		result.Passed = assertions.AllPassed(out.Assertions)
	default:
		result.Passed = out.Response != nil && out.Response.IsSuccess()
	}

	return result
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}
	if name == "" {
		return false
	}

	if len(pattern) > 1 && pattern[0] == '*' && pattern[len(pattern)-1] == '*' {
		substr := pattern[1 : len(pattern)-1]
		for i := 0; i <= len(name)-len(substr); i++ {
			if name[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	}

	if pattern[0] == '*' {
		suffix := pattern[1:]
		return len(name) >= len(suffix) && name[len(name)-len(suffix):] == suffix
	}

	if pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(name) >= len(prefix) && name[:len(prefix)] == prefix
	}

	return name == pattern
}
