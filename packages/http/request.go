package http

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

type Request struct {
	Method      string
	Path        string
	Headers     map[string]string
	Body        []byte
	QueryParams map[string]string
}

func NewRequest(method, path string) *Request {
	return &Request{
		Method:      method,
		Path:        path,
		Headers:     make(map[string]string),
		QueryParams: make(map[string]string),
	}
}

// SetJSONBody marshals v as the request body and sets the JSON content type
func (r *Request) SetJSONBody(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}
	r.Body = data
	if r.Headers["Content-Type"] == "" {
		r.Headers["Content-Type"] = "application/json"
	}
	return nil
}

// SetQueryParam sets a query parameter. Empty values are still sent, so a
// missing identifier reaches the server as "ideaId=".
func (r *Request) SetQueryParam(key, value string) *Request {
	r.QueryParams[key] = value
	return r
}

// BuildURL resolves the request path against baseURL and appends query
// parameters. Absolute paths are used as-is.
func (r *Request) BuildURL(baseURL string) string {
	raw := r.Path
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(raw, "/")
	}

	if len(r.QueryParams) == 0 {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	q := u.Query()
	for k, v := range r.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
