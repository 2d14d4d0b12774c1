package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/ideacheck/packages/core/runner"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	RunID       string       `json:"runId,omitempty"`
	Suite       string       `json:"suite,omitempty"`
	BaseURL     string       `json:"baseUrl,omitempty"`
	TokenSource string       `json:"tokenSource,omitempty"`
	Summary     JSONSummary  `json:"summary"`
	Latency     *JSONLatency `json:"latency,omitempty"`
	Tests       []JSONTest   `json:"tests"`
	Teardown    string       `json:"teardownError,omitempty"`
	Errors      []string     `json:"errors,omitempty"`
	Duration    float64      `json:"duration"`
	Time        string       `json:"time"`
}

// JSONSummary represents the test summary
type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// JSONLatency holds response latency percentiles in milliseconds
type JSONLatency struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Max   float64 `json:"max"`
}

// JSONTest represents a single test result
type JSONTest struct {
	Name       string          `json:"name"`
	Order      int             `json:"order"`
	Passed     bool            `json:"passed"`
	Skipped    bool            `json:"skipped,omitempty"`
	SkipReason string          `json:"skipReason,omitempty"`
	Duration   float64         `json:"duration"`
	Error      string          `json:"error,omitempty"`
	Request    *JSONRequest    `json:"request,omitempty"`
	Response   *JSONResponse   `json:"response,omitempty"`
	Assertions []JSONAssertion `json:"assertions,omitempty"`
	Captures   map[string]any  `json:"captures,omitempty"`
}

// JSONRequest represents request details
type JSONRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// JSONResponse represents response details
type JSONResponse struct {
	StatusCode int     `json:"statusCode"`
	Status     string  `json:"status"`
	Body       string  `json:"body,omitempty"`
	Duration   float64 `json:"duration"`
}

// JSONAssertion represents an assertion result
type JSONAssertion struct {
	Subject  string `json:"subject"`
	Operator string `json:"operator"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
}

// JSONFormatter formats test results as JSON
type JSONFormatter struct {
	writer  io.Writer
	output  JSONOutput
	results []JSONTest
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:  os.Stdout,
		results: make([]JSONTest, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatResult(result *runner.RunResult) {
	f.output.RunID = result.ID
	f.output.Suite = result.Suite
	f.output.BaseURL = result.BaseURL
	f.output.TokenSource = string(result.TokenSource)
	if result.TeardownError != nil {
		f.output.Teardown = result.TeardownError.Error()
	}
	if l := result.Latency; l.Count > 0 {
		f.output.Latency = &JSONLatency{
			Count: l.Count,
			Min:   ms(l.Min),
			Mean:  ms(l.Mean),
			P50:   ms(l.P50),
			P95:   ms(l.P95),
			P99:   ms(l.P99),
			Max:   ms(l.Max),
		}
	}

	for _, r := range result.Results {
		test := JSONTest{
			Name:     r.Name,
			Order:    r.Order,
			Passed:   r.Passed,
			Skipped:  r.Skipped,
			Duration: ms(r.Duration),
		}

		if r.SkipReason != "" && r.SkipReason != runner.SkipFiltered {
			test.SkipReason = r.SkipReason
		}

		if r.Error != nil {
			test.Error = r.Error.Error()
		}

		if r.Method != "" {
			test.Request = &JSONRequest{
				Method: r.Method,
				URL:    r.URL,
			}
		}

		if r.Response != nil {
			test.Response = &JSONResponse{
				StatusCode: r.Response.StatusCode,
				Status:     r.Response.Status,
				Duration:   ms(r.Response.Duration),
			}
			if !r.Passed {
				test.Response.Body = r.Response.BodyString()
			}
		}

		if len(r.Assertions) > 0 {
			test.Assertions = make([]JSONAssertion, len(r.Assertions))
			for i, a := range r.Assertions {
				test.Assertions[i] = JSONAssertion{
					Subject:  a.Subject,
					Operator: a.Operator,
					Expected: a.Expected,
					Actual:   a.Actual,
					Passed:   a.Passed,
					Message:  a.Message,
				}
			}
		}

		if len(r.Captures) > 0 {
			test.Captures = r.Captures
		}

		f.results = append(f.results, test)
	}
}

// FormatError records run-level errors, such as a failed setup
func (f *JSONFormatter) FormatError(err error) {
	f.output.Errors = append(f.output.Errors, err.Error())
}

func (f *JSONFormatter) FormatHeader(version string) {
	// No header needed for JSON output
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush(totalDuration time.Duration) error {
	var passed, failed, skipped int
	for _, t := range f.results {
		if t.Skipped {
			skipped++
		} else if t.Passed {
			passed++
		} else {
			failed++
		}
	}

	output := f.output
	output.Summary = JSONSummary{
		Total:   len(f.results),
		Passed:  passed,
		Failed:  failed,
		Skipped: skipped,
	}
	output.Tests = f.results
	output.Duration = ms(totalDuration)
	output.Time = time.Now().Format(time.RFC3339)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
