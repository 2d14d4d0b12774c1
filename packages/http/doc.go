// Package http provides the HTTP client used by ideacheck to talk to the
// service under test.
//
// It wraps the standard library's http package with additional features:
//   - Base URL resolution and query parameter handling
//   - Bearer token authentication applied as transport middleware
//   - Optional request rate limiting
//   - Configurable timeouts, redirects, proxy and TLS verification
//   - Response handling with JSON access through gjson
package http
