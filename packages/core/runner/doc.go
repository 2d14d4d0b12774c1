// Package runner executes an ordered suite of API cases against one service.
//
// It provides functionality for:
//   - One-time setup: token resolution and an authenticated session
//   - Running cases strictly in their declared order
//   - Sharing captured values between cases through a RunContext
//   - Per-case isolation: a failing case never aborts the run unless bail is set
//   - One-time teardown that always runs once setup has succeeded
//   - Waiting for the service to become reachable before setup
//
// Execution is sequential by design: later cases depend on identifiers
// captured by earlier ones.
package runner
