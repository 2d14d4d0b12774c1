package capture

import (
	"testing"

	"github.com/abdul-hamid-achik/ideacheck/packages/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractAll(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Headers:    map[string]string{"X-Request-Id": "req-1"},
		Body:       []byte(`{"msg": "Successfully created!", "id": "abc"}`),
	}

	got := ExtractAll(resp, []Capture{
		{Name: "id", Source: SourceBody, Path: "id"},
		{Name: "requestId", Source: SourceHeader, Path: "x-request-id"},
		{Name: "status", Source: SourceStatus},
		{Name: "missing", Source: SourceBody, Path: "nope"},
	})

	assert.Equal(t, map[string]any{
		"id":        "abc",
		"requestId": "req-1",
		"status":    200,
	}, got)
}

func TestExtractor_NilResponse(t *testing.T) {
	e := NewExtractor(nil)
	_, ok := e.Extract(Capture{Source: SourceStatus})
	assert.False(t, ok)

	assert.Empty(t, ExtractAll(nil, []Capture{{Name: "status", Source: SourceStatus}}))
}

func TestExtractor_Body(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		path     string
		expected any
		found    bool
	}{
		{name: "array length", body: `[{"id": "a"}, {"id": "b"}]`, path: "#", expected: float64(2), found: true},
		{name: "empty array length", body: `[]`, path: "#", expected: float64(0), found: true},
		{name: "nested field", body: `{"idea": {"title": "x"}}`, path: "idea.title", expected: "x", found: true},
		{name: "whole text body", body: `The idea is deleted!`, expected: "The idea is deleted!", found: true},
		{name: "path on text body", body: `oops`, path: "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(&http.Response{Body: []byte(tt.body)})
			got, ok := e.Extract(Capture{Source: SourceBody, Path: tt.path})
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}
