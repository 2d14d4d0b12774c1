// Package cmd implements the ideacheck CLI commands using Cobra.
//
// Available commands:
//   - run: Execute the ordered Idea API suite
//   - mock: Serve an in-memory Idea service
//   - history: List, show and prune recorded runs
//   - init: Write a starter config and .env template
//   - version: Show version information
//
// Exit codes are defined in exitcodes.go.
package cmd
