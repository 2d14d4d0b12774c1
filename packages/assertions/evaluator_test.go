package assertions

import (
	"testing"
	"time"

	"github.com/abdul-hamid-achik/ideacheck/packages/http"
	"github.com/abdul-hamid-achik/ideacheck/packages/idea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
		Duration:   100 * time.Millisecond,
	}
}

func TestEvaluator_Status(t *testing.T) {
	e := NewEvaluator(createResponse(200, `{}`))

	result := e.Status(200)
	assert.True(t, result.Passed)
	assert.Equal(t, 200, result.Actual)

	result = e.Status(400)
	assert.False(t, result.Passed)
	assert.Equal(t, "expected 400, got 200", result.Message)
}

func TestEvaluator_Equals(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		path     string
		expected any
		passed   bool
	}{
		{
			name:     "message matches",
			body:     `{"msg": "Successfully created!"}`,
			path:     "msg",
			expected: "Successfully created!",
			passed:   true,
		},
		{
			name:     "message differs",
			body:     `{"msg": "Something else"}`,
			path:     "msg",
			expected: "Successfully created!",
			passed:   false,
		},
		{
			name:     "alternative path",
			body:     `{"message": "Edited successfully"}`,
			path:     "msg|message",
			expected: "Edited successfully",
			passed:   true,
		},
		{
			name:     "first alternative wins",
			body:     `{"msg": "a", "message": "b"}`,
			path:     "msg|message",
			expected: "a",
			passed:   true,
		},
		{
			name:     "numeric compare",
			body:     `{"count": 3}`,
			path:     "count",
			expected: 3,
			passed:   true,
		},
		{
			name:     "missing path",
			body:     `{}`,
			path:     "msg",
			expected: "x",
			passed:   false,
		},
		{
			name:     "non json body",
			body:     `The idea is deleted!`,
			path:     "msg",
			expected: "x",
			passed:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewEvaluator(createResponse(200, tt.body)).Equals(tt.path, tt.expected)
			assert.Equal(t, tt.passed, result.Passed, result.Message)
			assert.Equal(t, OpEquals, result.Operator)
		})
	}
}

func TestEvaluator_Contains(t *testing.T) {
	e := NewEvaluator(createResponse(400, `"There is no such idea!"`))

	assert.True(t, e.Contains(idea.MsgNoSuchIdea).Passed)

	result := e.Contains(idea.MsgDeleted)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "to contain")
}

func TestEvaluator_NotEmptyArray(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		passed bool
	}{
		{name: "items", body: `[{"id": "1"}, {"id": "2"}]`, passed: true},
		{name: "empty array", body: `[]`, passed: false},
		{name: "null", body: `null`, passed: false},
		{name: "object", body: `{"id": "1"}`, passed: false},
		{name: "empty body", body: ``, passed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewEvaluator(createResponse(200, tt.body)).NotEmptyArray("")
			assert.Equal(t, tt.passed, result.Passed)
		})
	}
}

func TestEvaluator_Schema(t *testing.T) {
	e := NewEvaluator(createResponse(200, `{"msg": "Successfully created!"}`))
	assert.True(t, e.Schema(idea.MessageSchema).Passed)

	e = NewEvaluator(createResponse(200, `[{"id": "a", "title": "t"}]`))
	assert.True(t, e.Schema(idea.ListSchema).Passed)

	e = NewEvaluator(createResponse(200, `[{"title": "no id"}]`))
	result := e.Schema(idea.ListSchema)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Message, "schema validation failed")
}

func TestEvaluator_NilResponse(t *testing.T) {
	e := NewEvaluator(nil)

	results := []*Result{
		e.Status(200),
		e.Equals("msg", "x"),
		e.Contains("x"),
		e.NotEmptyArray(""),
		e.Schema(idea.MessageSchema),
	}

	for _, r := range results {
		assert.False(t, r.Passed)
		assert.Equal(t, "no response", r.Message)
	}
}

func TestAllPassed(t *testing.T) {
	passed := &Result{Passed: true}
	failed := &Result{Passed: false}

	assert.True(t, AllPassed(nil))
	assert.True(t, AllPassed([]*Result{passed, passed}))
	assert.False(t, AllPassed([]*Result{passed, failed}))

	f := Failed([]*Result{passed, failed})
	require.Len(t, f, 1)
	assert.Same(t, failed, f[0])
}

func TestEqual(t *testing.T) {
	r := Equal("body.msg", "Edited successfully", "Edited successfully")
	assert.True(t, r.Passed)
	assert.Equal(t, "body.msg", r.Subject)
	assert.Equal(t, OpEquals, r.Operator)

	r = Equal("body.msg", "", "Successfully created!")
	assert.False(t, r.Passed)
	assert.Equal(t, "", r.Actual)
	assert.NotEmpty(t, r.Message)

	assert.True(t, Equal("count", 2, float64(2)).Passed)
}
