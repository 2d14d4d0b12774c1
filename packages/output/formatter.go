package output

import (
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/ideacheck/packages/core/runner"
)

// Formatter renders run results
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable is implemented by formatters that accumulate results and write
// them once the run is over
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Names lists the supported output formats
var Names = []string{"console", "json", "junit", "tap"}

// Options shared by New
type Options struct {
	Verbose bool
	NoColor bool
}

// New returns the formatter registered under name
func New(name string, w io.Writer, opts Options) (Formatter, error) {
	switch name {
	case "", "console":
		return NewConsoleFormatter(WithWriter(w), WithVerbose(opts.Verbose), WithNoColor(opts.NoColor)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case "tap":
		return NewTAPFormatter(TAPWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (supported: %v)", name, Names)
	}
}

// failureLines describes every failed assertion of a case
func failureLines(r *runner.CaseResult) []string {
	var lines []string
	for _, a := range r.Assertions {
		if a.Passed {
			continue
		}
		line := fmt.Sprintf("%s %s: expected %v, got %v", a.Subject, a.Operator, a.Expected, a.Actual)
		if a.Message != "" {
			line += ". " + a.Message
		}
		lines = append(lines, line)
	}
	return lines
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
