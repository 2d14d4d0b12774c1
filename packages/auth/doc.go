// Package auth resolves the bearer token used for a test run.
//
// A configured static token is used as-is. Otherwise the token is obtained
// with a single login call against the service's authentication endpoint.
package auth
