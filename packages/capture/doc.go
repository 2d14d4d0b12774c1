// Package capture extracts values from HTTP responses.
//
// It supports capturing values from:
//   - Response body (gjson paths, "#" for the length of a list)
//   - Response headers
//   - Response status code
//
// Cases record their captures on the run result and the run context, so
// verbose and JSON reports show what each response carried.
package capture
