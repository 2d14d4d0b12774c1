package db

import (
	"time"

	"github.com/abdul-hamid-achik/ideacheck/packages/core/runner"
)

// Case statuses as stored
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// RunRecord is one stored run
type RunRecord struct {
	ID            string
	Suite         string
	BaseURL       string
	TokenSource   string
	StartedAt     time.Time
	DurationMs    int64
	Passed        int
	Failed        int
	Skipped       int
	Success       bool
	P50Ms         float64
	P95Ms         float64
	P99Ms         float64
	TeardownError string
	Cases         []CaseRecord
}

// CaseRecord is one stored case outcome
type CaseRecord struct {
	Order      int
	Name       string
	Status     string
	StatusCode int
	DurationMs int64
	Error      string
}

// FromRunResult converts a finished run into its stored form
func FromRunResult(result *runner.RunResult) *RunRecord {
	run := &RunRecord{
		ID:          result.ID,
		Suite:       result.Suite,
		BaseURL:     result.BaseURL,
		TokenSource: string(result.TokenSource),
		StartedAt:   result.StartedAt,
		DurationMs:  result.Duration.Milliseconds(),
		Passed:      result.Passed,
		Failed:      result.Failed,
		Skipped:     result.Skipped,
		Success:     result.Success(),
		P50Ms:       toMs(result.Latency.P50),
		P95Ms:       toMs(result.Latency.P95),
		P99Ms:       toMs(result.Latency.P99),
		Cases:       make([]CaseRecord, 0, len(result.Results)),
	}
	if result.TeardownError != nil {
		run.TeardownError = result.TeardownError.Error()
	}

	for _, r := range result.Results {
		cr := CaseRecord{
			Order:      r.Order,
			Name:       r.Name,
			DurationMs: r.Duration.Milliseconds(),
		}
		switch {
		case r.Skipped:
			cr.Status = StatusSkipped
		case r.Passed:
			cr.Status = StatusPassed
		default:
			cr.Status = StatusFailed
		}
		if r.Response != nil {
			cr.StatusCode = r.Response.StatusCode
		}
		if r.Error != nil {
			cr.Error = r.Error.Error()
		}
		run.Cases = append(run.Cases, cr)
	}
	return run
}

func toMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
