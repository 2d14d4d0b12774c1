package capture

import (
	"github.com/abdul-hamid-achik/ideacheck/packages/http"
	"github.com/tidwall/gjson"
)

// Source selects which part of the response a capture reads
type Source int

const (
	SourceBody Source = iota
	SourceHeader
	SourceStatus
)

// Capture names a value to extract. For body captures Path is a gjson path,
// so "#" yields the length of a top-level array.
type Capture struct {
	Name   string
	Source Source
	Path   string
}

type Extractor struct {
	response *http.Response
	bodyJSON gjson.Result
}

func NewExtractor(resp *http.Response) *Extractor {
	e := &Extractor{
		response: resp,
	}
	if resp != nil {
		e.bodyJSON = resp.JSON()
	}
	return e
}

func (e *Extractor) Extract(c Capture) (any, bool) {
	if e.response == nil {
		return nil, false
	}
	switch c.Source {
	case SourceBody:
		return e.extractFromBody(c.Path)
	case SourceHeader:
		return e.extractFromHeader(c.Path)
	case SourceStatus:
		return e.response.StatusCode, true
	default:
		return nil, false
	}
}

func (e *Extractor) extractFromBody(path string) (any, bool) {
	if !e.bodyJSON.Exists() {
		if path == "" {
			return e.response.BodyString(), true
		}
		return nil, false
	}

	if path == "" {
		return e.bodyJSON.Value(), true
	}

	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func (e *Extractor) extractFromHeader(name string) (any, bool) {
	value := e.response.Header(name)
	if value == "" {
		return nil, false
	}
	return value, true
}

// ExtractAll returns the captures found in resp keyed by name. Missing values
// are left out.
func ExtractAll(resp *http.Response, captures []Capture) map[string]any {
	extractor := NewExtractor(resp)
	results := make(map[string]any)

	for _, c := range captures {
		if value, ok := extractor.Extract(c); ok {
			results[c.Name] = value
		}
	}

	return results
}
