// Package config handles configuration loading and management for ideacheck.
//
// It provides functionality for:
//   - Loading configuration from ideacheck.yaml or .ideacheck.json files
//   - Default configuration values
//   - Overrides from IDEACHECK_* environment variables
//   - Placeholder expansion and validation before a run
package config
