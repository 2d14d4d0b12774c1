package cmd

import (
	"errors"
	"net"

	"github.com/abdul-hamid-achik/ideacheck/packages/auth"
)

// Exit codes for ideacheck CLI
const (
	// ExitSuccess indicates all cases passed
	ExitSuccess = 0

	// ExitTestFailure indicates one or more cases failed or teardown failed
	ExitTestFailure = 1

	// ExitConfigError indicates a configuration error, including a login
	// response without a token
	ExitConfigError = 3

	// ExitNetworkError indicates the service could not be reached
	ExitNetworkError = 4

	// ExitAuthError indicates the login request was rejected
	ExitAuthError = 5

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code for an error returned by a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCode maps an error to the process exit code. Typed setup errors take
// precedence over a code attached by the command.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var configErr *auth.ConfigError
	if errors.As(err, &configErr) {
		return ExitConfigError
	}
	var authErr *auth.AuthenticationError
	if errors.As(err, &authErr) {
		return ExitAuthError
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ExitNetworkError
	}
	return ExitTestFailure
}
