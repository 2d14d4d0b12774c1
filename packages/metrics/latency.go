// Package metrics aggregates request latencies for a test run.
package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	// histogram range in microseconds: 1us to 60s
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Latency records durations into an HDR histogram. It is not safe for
// concurrent use; the runner records from a single goroutine.
type Latency struct {
	histogram *hdrhistogram.Histogram
}

// Summary is a point-in-time view of recorded latencies
type Summary struct {
	Count int64         `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
}

func NewLatency() *Latency {
	return &Latency{
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
	}
}

// Record adds a duration, clamped to the histogram range
func (l *Latency) Record(d time.Duration) {
	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}
	_ = l.histogram.RecordValue(us)
}

func (l *Latency) Summary() Summary {
	count := l.histogram.TotalCount()
	if count == 0 {
		return Summary{}
	}
	return Summary{
		Count: count,
		Min:   usToDuration(l.histogram.Min()),
		Max:   usToDuration(l.histogram.Max()),
		Mean:  time.Duration(l.histogram.Mean() * float64(time.Microsecond)),
		P50:   usToDuration(l.histogram.ValueAtQuantile(50)),
		P95:   usToDuration(l.histogram.ValueAtQuantile(95)),
		P99:   usToDuration(l.histogram.ValueAtQuantile(99)),
	}
}

func usToDuration(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}
