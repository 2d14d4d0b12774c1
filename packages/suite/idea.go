// Package suite defines the Idea service acceptance cases.
package suite

import (
	"context"
	"net/http"

	"github.com/abdul-hamid-achik/ideacheck/packages/assertions"
	"github.com/abdul-hamid-achik/ideacheck/packages/capture"
	"github.com/abdul-hamid-achik/ideacheck/packages/core/runner"
	ihttp "github.com/abdul-hamid-achik/ideacheck/packages/http"
	"github.com/abdul-hamid-achik/ideacheck/packages/idea"
)

// Name identifies the suite in reports and run history
const Name = "IdeaCenterApiTests"

// NonExistingIdeaID is an identifier the service never issues
const NonExistingIdeaID = "123"

// CaptureLastIdeaID is the capture key for the identifier read by the list case
const CaptureLastIdeaID = "lastCreatedIdeaId"

// Options tunes the suite without changing its cases or their order
type Options struct {
	// ValidateSchemas adds JSON schema checks to every case except the
	// invalid create, whose body is not part of the contract.
	ValidateSchemas bool
}

// IdeaCases returns the cases in their fixed execution order
func IdeaCases(opts Options) []*runner.Case {
	cases := []*runner.Case{
		{
			Order:       1,
			Name:        "CreateIdea_WithRequiredFields_ShouldReturnSuccess",
			Description: "POST a new idea with title and description",
			Run:         createIdea,
		},
		{
			Order:       2,
			Name:        "GetAllIdeas_ShouldReturnListOfIdeas",
			Description: "GET all ideas and capture the last identifier",
			Run:         listIdeas,
		},
		{
			Order:       3,
			Name:        "EditExistingIdea_ShouldReturnSuccess",
			Description: "PUT an update to the captured idea",
			Run:         editExistingIdea,
		},
		{
			Order:       4,
			Name:        "DeleteIdea_ShouldReturnSuccess",
			Description: "DELETE the captured idea",
			Run:         deleteExistingIdea,
		},
		{
			Order:       5,
			Name:        "CreateIdea_WithoutRequiredFields_ShouldReturnBadRequest",
			Description: "POST an idea with empty title and description",
			Run:         createInvalidIdea,
		},
		{
			Order:       6,
			Name:        "EditNonExistingIdea_ShouldReturnBadRequest",
			Description: "PUT an update to an unknown idea",
			Run:         editNonExistingIdea,
		},
		{
			Order:       7,
			Name:        "DeleteNonExistingIdea_ShouldReturnBadRequest",
			Description: "DELETE an unknown idea",
			Run:         deleteNonExistingIdea,
		},
	}

	if opts.ValidateSchemas {
		withSchema(cases[0], http.StatusOK, idea.MessageSchema)
		withSchema(cases[1], http.StatusOK, idea.ListSchema)
		withSchema(cases[2], http.StatusOK, idea.MessageSchema)
		withSchema(cases[3], http.StatusOK, idea.TextSchema)
		withSchema(cases[5], http.StatusBadRequest, idea.TextSchema)
		withSchema(cases[6], http.StatusBadRequest, idea.TextSchema)
	}
	return cases
}

// withSchema wraps a case so that a response with the status the case
// expects is also validated against schema. Other statuses already fail
// the status assertion.
func withSchema(c *runner.Case, status int, schema string) {
	run := c.Run
	c.Run = func(ctx context.Context, rc *runner.RunContext) runner.Outcome {
		out := run(ctx, rc)
		if out.Response != nil && out.Response.StatusCode == status {
			out.Assertions = append(out.Assertions, assertions.NewEvaluator(out.Response).Schema(schema))
		}
		return out
	}
}

// responseCaptures are recorded for every case that got a response
var responseCaptures = []capture.Capture{
	{Name: "status", Source: capture.SourceStatus},
	{Name: "contentType", Source: capture.SourceHeader, Path: "Content-Type"},
}

// listCaptures add the number of listed ideas
var listCaptures = append([]capture.Capture{
	{Name: "ideaCount", Source: capture.SourceBody, Path: "#"},
}, responseCaptures...)

func failed(method string, resp *ihttp.Response, err error) runner.Outcome {
	return runner.Outcome{Method: method, Response: resp, Error: err}
}

func outcome(method string, resp *ihttp.Response, results ...*assertions.Result) runner.Outcome {
	return runner.Outcome{
		Method:     method,
		Response:   resp,
		Assertions: results,
		Captures:   capture.ExtractAll(resp, responseCaptures),
	}
}

// messageIs checks the message of the response envelope. Bodies that are
// not JSON objects fall back to the path assertion for its diagnostics.
func messageIs(resp *ihttp.Response, expected string) *assertions.Result {
	body := resp.JSON()
	if !body.IsObject() {
		return assertions.NewEvaluator(resp).Equals("msg", expected)
	}
	return assertions.Equal("body.msg", idea.ParseAPIResponse(body).Msg, expected)
}

func createIdea(ctx context.Context, rc *runner.RunContext) runner.Outcome {
	payload := idea.NewIdea("Test Idea", "This is a test idea description.")

	resp, err := rc.Ideas.Create(ctx, payload)
	if err != nil {
		return failed(http.MethodPost, resp, err)
	}

	e := assertions.NewEvaluator(resp)
	return outcome(http.MethodPost, resp,
		e.Status(http.StatusOK),
		messageIs(resp, idea.MsgCreated),
	)
}

func listIdeas(ctx context.Context, rc *runner.RunContext) runner.Outcome {
	resp, err := rc.Ideas.All(ctx)
	if err != nil {
		return failed(http.MethodGet, resp, err)
	}

	e := assertions.NewEvaluator(resp)
	out := runner.Outcome{
		Method:   http.MethodGet,
		Response: resp,
		Assertions: []*assertions.Result{
			e.Status(http.StatusOK),
			e.NotEmptyArray(""),
		},
		Captures: capture.ExtractAll(resp, listCaptures),
	}

	// An empty capture is stored too, so later cases see a deterministic
	// empty identifier instead of a stale one.
	var id string
	if ideas := idea.ParseAPIResponses(resp.JSON()); len(ideas) > 0 {
		id = ideas[len(ideas)-1].ID
	}
	rc.LastCreatedIdeaID = id
	out.Captures[CaptureLastIdeaID] = id

	return out
}

func editExistingIdea(ctx context.Context, rc *runner.RunContext) runner.Outcome {
	payload := idea.NewIdea("Edited Idea", "This is an updated test idea description.")

	resp, err := rc.Ideas.Edit(ctx, rc.LastCreatedIdeaID, payload)
	if err != nil {
		return failed(http.MethodPut, resp, err)
	}

	e := assertions.NewEvaluator(resp)
	return outcome(http.MethodPut, resp,
		e.Status(http.StatusOK),
		messageIs(resp, idea.MsgEdited),
	)
}

func deleteExistingIdea(ctx context.Context, rc *runner.RunContext) runner.Outcome {
	resp, err := rc.Ideas.Delete(ctx, rc.LastCreatedIdeaID)
	if err != nil {
		return failed(http.MethodDelete, resp, err)
	}

	e := assertions.NewEvaluator(resp)
	return outcome(http.MethodDelete, resp,
		e.Status(http.StatusOK),
		e.Contains(idea.MsgDeleted),
	)
}

// createInvalidIdea asserts on the status only; the service's message for
// this path is not part of the contract.
func createInvalidIdea(ctx context.Context, rc *runner.RunContext) runner.Outcome {
	payload := idea.IdeaDTO{Title: "", Description: ""}

	resp, err := rc.Ideas.Create(ctx, payload)
	if err != nil {
		return failed(http.MethodPost, resp, err)
	}

	return outcome(http.MethodPost, resp, assertions.NewEvaluator(resp).Status(http.StatusBadRequest))
}

func editNonExistingIdea(ctx context.Context, rc *runner.RunContext) runner.Outcome {
	payload := idea.NewIdea(
		"Edited Non-Existing Idea",
		"This is an updated test idea description for non existing idea",
	)

	resp, err := rc.Ideas.Edit(ctx, NonExistingIdeaID, payload)
	if err != nil {
		return failed(http.MethodPut, resp, err)
	}

	e := assertions.NewEvaluator(resp)
	return outcome(http.MethodPut, resp,
		e.Status(http.StatusBadRequest),
		e.Contains(idea.MsgNoSuchIdea),
	)
}

func deleteNonExistingIdea(ctx context.Context, rc *runner.RunContext) runner.Outcome {
	resp, err := rc.Ideas.Delete(ctx, NonExistingIdeaID)
	if err != nil {
		return failed(http.MethodDelete, resp, err)
	}

	e := assertions.NewEvaluator(resp)
	return outcome(http.MethodDelete, resp,
		e.Status(http.StatusBadRequest),
		e.Contains(idea.MsgNoSuchIdea),
	)
}
