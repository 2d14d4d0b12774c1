package assertions

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/abdul-hamid-achik/ideacheck/packages/http"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Operators reported in results
const (
	OpEquals   = "=="
	OpContains = "contains"
	OpNotEmpty = "not empty"
	OpSchema   = "schema"
)

type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator string
}

// Evaluator checks a single response. A nil response (the request never
// completed) fails every assertion instead of panicking.
type Evaluator struct {
	response *http.Response
	bodyJSON gjson.Result
}

func NewEvaluator(resp *http.Response) *Evaluator {
	e := &Evaluator{response: resp}
	if resp != nil {
		e.bodyJSON = resp.JSON()
	}
	return e
}

// Status asserts the response status code
func (e *Evaluator) Status(expected int) *Result {
	result := &Result{
		Subject:  "status",
		Operator: OpEquals,
		Expected: expected,
	}
	if e.response == nil {
		result.Message = "no response"
		return result
	}

	result.Actual = e.response.StatusCode
	result.Passed, result.Message = equals(e.response.StatusCode, expected)
	return result
}

// Equals asserts the value at a gjson path. Alternatives separated by "|"
// are tried in order and the first existing one is compared.
func (e *Evaluator) Equals(path string, expected any) *Result {
	result := &Result{
		Subject:  "body." + path,
		Operator: OpEquals,
		Expected: expected,
	}
	if e.response == nil {
		result.Message = "no response"
		return result
	}
	if !e.bodyJSON.Exists() {
		result.Actual = e.response.BodyString()
		result.Message = "response body is not JSON"
		return result
	}

	value := e.lookup(path)
	if !value.Exists() {
		result.Message = fmt.Sprintf("%s does not exist", path)
		return result
	}

	result.Actual = value.Value()
	result.Passed, result.Message = equals(result.Actual, expected)
	return result
}

// Equal compares a value the caller already decoded from the response
func Equal(subject string, actual, expected any) *Result {
	result := &Result{
		Subject:  subject,
		Operator: OpEquals,
		Expected: expected,
		Actual:   actual,
	}
	result.Passed, result.Message = equals(actual, expected)
	return result
}

// Contains asserts the raw body contains a substring
func (e *Evaluator) Contains(expected string) *Result {
	result := &Result{
		Subject:  "body",
		Operator: OpContains,
		Expected: expected,
	}
	if e.response == nil {
		result.Message = "no response"
		return result
	}

	body := e.response.BodyString()
	result.Actual = body
	if strings.Contains(body, expected) {
		result.Passed = true
		return result
	}
	result.Message = fmt.Sprintf("expected '%v' to contain '%v'", body, expected)
	return result
}

// NotEmptyArray asserts the value at path (or the whole body for "") is a
// non-null array with at least one element.
func (e *Evaluator) NotEmptyArray(path string) *Result {
	subject := "body"
	if path != "" {
		subject += "." + path
	}
	result := &Result{
		Subject:  subject,
		Operator: OpNotEmpty,
		Expected: "non-empty array",
	}
	if e.response == nil {
		result.Message = "no response"
		return result
	}

	value := e.bodyJSON
	if path != "" {
		value = e.lookup(path)
	}

	switch {
	case !value.Exists() || value.Type == gjson.Null:
		result.Actual = nil
		result.Message = "expected array, got null"
	case !value.IsArray():
		result.Actual = value.Raw
		result.Message = fmt.Sprintf("expected array, got %s", value.Type)
	default:
		n := len(value.Array())
		result.Actual = fmt.Sprintf("array with %d items", n)
		if n > 0 {
			result.Passed = true
		} else {
			result.Message = "expected array to be non-empty"
		}
	}
	return result
}

// Schema validates the body against a JSON schema document
func (e *Evaluator) Schema(schema string) *Result {
	result := &Result{
		Subject:  "body",
		Operator: OpSchema,
		Expected: "valid document",
	}
	if e.response == nil {
		result.Message = "no response"
		return result
	}
	if !e.bodyJSON.Exists() {
		result.Actual = e.response.BodyString()
		result.Message = "response body is not JSON"
		return result
	}

	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(e.response.Body)

	validation, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		result.Message = fmt.Sprintf("schema validation error: %v", err)
		return result
	}

	if validation.Valid() {
		result.Passed = true
		result.Actual = "valid document"
		return result
	}

	var errs []string
	for _, desc := range validation.Errors() {
		errs = append(errs, desc.String())
	}
	result.Actual = "invalid document"
	result.Message = fmt.Sprintf("schema validation failed: %s", strings.Join(errs, "; "))
	return result
}

func (e *Evaluator) lookup(path string) gjson.Result {
	for _, p := range strings.Split(path, "|") {
		if value := e.bodyJSON.Get(strings.TrimSpace(p)); value.Exists() {
			return value
		}
	}
	return gjson.Result{}
}

func equals(actual, expected any) (bool, string) {
	if reflect.DeepEqual(actual, expected) {
		return true, ""
	}

	actualNum, aOk := toFloat64(actual)
	expectedNum, eOk := toFloat64(expected)
	if aOk && eOk && actualNum == expectedNum {
		return true, ""
	}

	actualStr := fmt.Sprintf("%v", actual)
	expectedStr := fmt.Sprintf("%v", expected)
	if aOk == eOk && actualStr == expectedStr {
		return true, ""
	}

	return false, fmt.Sprintf("expected %v, got %v", expected, actual)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// AllPassed reports whether every result passed. An empty list passes.
func AllPassed(results []*Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// Failed returns the results that did not pass
func Failed(results []*Result) []*Result {
	var failed []*Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
