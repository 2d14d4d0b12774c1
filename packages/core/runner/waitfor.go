package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/ideacheck/packages/http"
)

const (
	// DefaultWaitInterval is the delay between reachability checks
	DefaultWaitInterval = 500 * time.Millisecond
	waitCheckTimeout    = 5 * time.Second
)

// waitForService polls the base URL until the service answers with any HTTP
// status, the wait timeout elapses, or ctx is done.
func (r *Runner) waitForService(ctx context.Context) error {
	interval := r.config.WaitInterval
	if interval <= 0 {
		interval = DefaultWaitInterval
	}

	if r.config.Verbose {
		fmt.Fprintf(r.diag, "Waiting for %s (timeout: %v, interval: %v)\n", r.config.BaseURL, r.config.WaitTimeout, interval)
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.WaitTimeout)
	defer cancel()

	client := http.NewClient(http.WithBaseURL(r.config.BaseURL), http.WithTimeout(waitCheckTimeout))
	defer client.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		resp, err := client.Get(ctx, "/")
		if err == nil {
			if r.config.Verbose {
				fmt.Fprintf(r.diag, "Service %s is reachable (status: %d)\n", r.config.BaseURL, resp.StatusCode)
			}
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("service %s not reachable after %v: %w", r.config.BaseURL, r.config.WaitTimeout, lastErr)
		case <-ticker.C:
		}
	}
}
