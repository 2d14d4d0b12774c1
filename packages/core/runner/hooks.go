package runner

import (
	"context"
	"fmt"
)

// Hook runs once per run after the last case
type Hook func(ctx context.Context, rc *RunContext) error

// AfterAll registers a teardown hook. Hooks run in registration order
// before the session is closed.
func (r *Runner) AfterAll(h Hook) {
	r.afterAll = append(r.afterAll, h)
}

// teardown runs every after-all hook even if one fails or panics, then
// closes the session. The first hook error is returned.
func (r *Runner) teardown(ctx context.Context, rc *RunContext) error {
	defer rc.Session.Close()

	var firstErr error
	for i, hook := range r.afterAll {
		if err := runHook(ctx, hook, rc); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("teardown hook %d failed: %w", i+1, err)
			}
			if r.config.Verbose {
				fmt.Fprintf(r.diag, "warning: teardown hook %d failed: %v\n", i+1, err)
			}
		}
	}
	return firstErr
}

func runHook(ctx context.Context, h Hook, rc *RunContext) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panicked: %v", p)
		}
	}()
	return h(ctx, rc)
}
