package suite

import (
	"context"
	"fmt"
	"net/http"

	"github.com/abdul-hamid-achik/ideacheck/packages/core/runner"
)

// CleanupHook deletes the idea captured by the list case. A 400 means the
// delete case already removed it and is not an error.
func CleanupHook(ctx context.Context, rc *runner.RunContext) error {
	if rc.LastCreatedIdeaID == "" {
		return nil
	}

	resp, err := rc.Ideas.Delete(ctx, rc.LastCreatedIdeaID)
	if err != nil {
		return fmt.Errorf("cleanup of idea %s: %w", rc.LastCreatedIdeaID, err)
	}
	if resp.IsSuccess() || resp.StatusCode == http.StatusBadRequest {
		return nil
	}
	return fmt.Errorf("cleanup of idea %s returned status %d", rc.LastCreatedIdeaID, resp.StatusCode)
}
