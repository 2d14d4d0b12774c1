// Package notify posts run summaries to chat webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/ideacheck/packages/assertions"
	"github.com/abdul-hamid-achik/ideacheck/packages/core/runner"
	ihttp "github.com/abdul-hamid-achik/ideacheck/packages/http"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when cases fail
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when every case passes
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failures and on the first
	// passing run after a failure
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn validates a policy name
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch on := NotifyOn(s); on {
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return on, nil
	case "":
		return NotifyFailure, nil
	default:
		return "", fmt.Errorf("invalid notify policy %q (use always, failure, success or recovery)", s)
	}
}

// RunSummary represents the summary of a run for notifications
type RunSummary struct {
	RunID         string        `json:"run_id"`
	Suite         string        `json:"suite"`
	Target        string        `json:"target,omitempty"`
	TotalTests    int           `json:"total_tests"`
	PassedTests   int           `json:"passed_tests"`
	FailedTests   int           `json:"failed_tests"`
	SkippedTests  int           `json:"skipped_tests"`
	Duration      time.Duration `json:"duration"`
	FailedResults []FailedTest  `json:"failed_results,omitempty"`
	TeardownError string        `json:"teardown_error,omitempty"`
	IsRecovery    bool          `json:"is_recovery,omitempty"`
}

// Success reports whether the summarized run passed
func (s *RunSummary) Success() bool {
	return s.FailedTests == 0 && s.TeardownError == ""
}

// FailedTest represents a failed case for notifications
type FailedTest struct {
	Name   string   `json:"name"`
	Errors []string `json:"errors,omitempty"`
}

// SummaryFromRun builds a notification summary from a finished run
func SummaryFromRun(result *runner.RunResult) *RunSummary {
	summary := &RunSummary{
		RunID:        result.ID,
		Suite:        result.Suite,
		Target:       result.BaseURL,
		TotalTests:   len(result.Results),
		PassedTests:  result.Passed,
		FailedTests:  result.Failed,
		SkippedTests: result.Skipped,
		Duration:     result.Duration,
	}
	if result.TeardownError != nil {
		summary.TeardownError = result.TeardownError.Error()
	}

	for _, r := range result.Results {
		if r.Passed || r.Skipped {
			continue
		}
		ft := FailedTest{Name: r.Name}
		if r.Error != nil {
			ft.Errors = append(ft.Errors, r.Error.Error())
		}
		for _, a := range assertions.Failed(r.Assertions) {
			ft.Errors = append(ft.Errors, fmt.Sprintf("%s %s: expected %v, got %v", a.Subject, a.Operator, a.Expected, a.Actual))
		}
		summary.FailedResults = append(summary.FailedResults, ft)
	}
	return summary
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about run results
	Notify(ctx context.Context, summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// New builds the notifier registered under kind
func New(kind, webhookURL string, client *ihttp.Client) (Notifier, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("%s notifier requires a webhook URL", kind)
	}
	switch kind {
	case "slack":
		return NewSlackNotifier(webhookURL, WithSlackClient(client)), nil
	case "teams":
		return NewTeamsNotifier(webhookURL, WithTeamsClient(client)), nil
	default:
		return nil, fmt.Errorf("unknown notifier %q (use slack or teams)", kind)
	}
}

// Manager manages multiple notifiers
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if last run was successful
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true, // Assume success initially
	}
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// SetLastState seeds the outcome of the previous run, e.g. from run history
func (m *Manager) SetLastState(success bool) {
	m.lastState = success
}

// Notify sends notifications based on the configured policy. It reports
// whether a notification was attempted.
func (m *Manager) Notify(ctx context.Context, summary *RunSummary) (bool, error) {
	shouldNotify := false
	currentSuccess := summary.Success()

	switch m.notifyOn {
	case NotifyAlways:
		shouldNotify = true
	case NotifyFailure:
		shouldNotify = !currentSuccess
	case NotifySuccess:
		shouldNotify = currentSuccess
	case NotifyRecovery:
		if !m.lastState && currentSuccess {
			shouldNotify = true
			summary.IsRecovery = true
		}
		if !currentSuccess {
			shouldNotify = true
		}
	}

	m.lastState = currentSuccess

	if !shouldNotify || len(m.notifiers) == 0 {
		return false, nil
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return true, errors.Join(errs...)
}

// post sends payload to a webhook and checks for a 2xx answer
func post(ctx context.Context, client *ihttp.Client, service, webhookURL string, payload any) error {
	if client == nil {
		client = ihttp.NewClient(ihttp.WithTimeout(10 * time.Second))
		defer client.Close()
	}

	resp, err := client.PostJSON(ctx, webhookURL, payload)
	if err != nil {
		return fmt.Errorf("failed to send %s notification: %w", service, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%s API returned status %d: %s", service, resp.StatusCode, resp.BodyString())
	}
	return nil
}
