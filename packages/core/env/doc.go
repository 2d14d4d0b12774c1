// Package env handles environment variables and placeholder resolution for
// ideacheck.
//
// It provides functionality for:
//   - Loading .env files
//   - Reading IDEACHECK_* variables from the process environment
//   - Expanding {{name}} and ${NAME} placeholders in configuration values
package env
