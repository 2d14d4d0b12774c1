package runner

import (
	"context"

	"github.com/abdul-hamid-achik/ideacheck/packages/assertions"
	"github.com/abdul-hamid-achik/ideacheck/packages/auth"
	"github.com/abdul-hamid-achik/ideacheck/packages/http"
	"github.com/abdul-hamid-achik/ideacheck/packages/idea"
)

// Session is created once by setup and closed once by teardown
type Session struct {
	BaseURL     string
	Token       string
	TokenSource auth.Source
	Client      *http.Client
}

// Close releases the session's pooled connections
func (s *Session) Close() {
	if s != nil && s.Client != nil {
		s.Client.Close()
	}
}

// RunContext is the mutable state shared by the cases of one run. A fresh
// context is created per run, so independent runs never share state.
type RunContext struct {
	Session *Session
	Ideas   *idea.Client

	// LastCreatedIdeaID is written by the list case and read by edit and
	// delete. Empty means nothing was captured.
	LastCreatedIdeaID string

	Captures map[string]any
}

func newRunContext(session *Session) *RunContext {
	return &RunContext{
		Session:  session,
		Ideas:    idea.NewClient(session.Client),
		Captures: make(map[string]any),
	}
}

// Outcome is what a case reports back to the runner
type Outcome struct {
	Method     string
	Response   *http.Response
	Assertions []*assertions.Result
	Captures   map[string]any
	Error      error
}

// Case is one ordered step of a suite
type Case struct {
	Order       int
	Name        string
	Description string
	Run         func(ctx context.Context, rc *RunContext) Outcome
}
