// Package idea describes the Idea service API: its endpoints, payloads and
// the messages it answers with.
package idea

import (
	"context"
	"fmt"
	"net/http"

	ihttp "github.com/abdul-hamid-achik/ideacheck/packages/http"
	"github.com/tidwall/gjson"
)

// Endpoint paths, relative to the service base URL
const (
	PathAuthentication = "/api/User/Authentication"
	PathCreate         = "/api/Idea/Create"
	PathAll            = "/api/Idea/All"
	PathEdit           = "/api/Idea/Edit"
	PathDelete         = "/api/Idea/Delete"

	// QueryIdeaID is the query parameter carrying the idea identifier
	QueryIdeaID = "ideaId"
)

// Messages the service replies with
const (
	MsgCreated    = "Successfully created!"
	MsgEdited     = "Edited successfully"
	MsgDeleted    = "The idea is deleted!"
	MsgNoSuchIdea = "There is no such idea!"
)

// IdeaDTO is the create/edit payload. URL is omitted when nil so that a
// request can leave it out entirely.
type IdeaDTO struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	URL         *string `json:"url,omitempty"`
}

// NewIdea builds a payload with an explicit empty url
func NewIdea(title, description string) IdeaDTO {
	empty := ""
	return IdeaDTO{Title: title, Description: description, URL: &empty}
}

// APIResponse is the common response envelope. The service names the
// message field "msg"; "message" is accepted as well.
type APIResponse struct {
	ID  string
	Msg string
}

// ParseAPIResponse reads an APIResponse from a JSON document
func ParseAPIResponse(doc gjson.Result) APIResponse {
	msg := doc.Get("msg")
	if !msg.Exists() {
		msg = doc.Get("message")
	}
	return APIResponse{
		ID:  doc.Get("id").String(),
		Msg: msg.String(),
	}
}

// ParseAPIResponses reads a JSON array of APIResponse. A nil slice means the
// body was not an array.
func ParseAPIResponses(doc gjson.Result) []APIResponse {
	if !doc.IsArray() {
		return nil
	}
	items := doc.Array()
	out := make([]APIResponse, 0, len(items))
	for _, item := range items {
		out = append(out, ParseAPIResponse(item))
	}
	return out
}

// Credentials are posted to the authentication endpoint
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Client issues Idea API calls. It does not assert on responses; callers
// inspect status codes and bodies themselves.
type Client struct {
	http *ihttp.Client
}

func NewClient(c *ihttp.Client) *Client {
	return &Client{http: c}
}

func (c *Client) Authenticate(ctx context.Context, creds Credentials) (*ihttp.Response, error) {
	return c.http.PostJSON(ctx, PathAuthentication, creds)
}

func (c *Client) Create(ctx context.Context, payload IdeaDTO) (*ihttp.Response, error) {
	return c.http.PostJSON(ctx, PathCreate, payload)
}

func (c *Client) All(ctx context.Context) (*ihttp.Response, error) {
	return c.http.Get(ctx, PathAll)
}

func (c *Client) Edit(ctx context.Context, id string, payload IdeaDTO) (*ihttp.Response, error) {
	req := ihttp.NewRequest(http.MethodPut, PathEdit).SetQueryParam(QueryIdeaID, id)
	if err := req.SetJSONBody(payload); err != nil {
		return nil, fmt.Errorf("edit idea %q: %w", id, err)
	}
	return c.http.Do(ctx, req)
}

func (c *Client) Delete(ctx context.Context, id string) (*ihttp.Response, error) {
	req := ihttp.NewRequest(http.MethodDelete, PathDelete).SetQueryParam(QueryIdeaID, id)
	return c.http.Do(ctx, req)
}
