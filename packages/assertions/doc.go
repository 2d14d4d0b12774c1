// Package assertions checks responses from the service under test.
//
// Supported assertions:
//   - Status code checks
//   - Equality of a JSON field (gjson paths, "a|b" picks the first that exists)
//   - Raw body substring checks
//   - Non-empty array checks
//   - JSON Schema validation
//
// Every assertion yields a Result carrying the expected and actual values so
// reporters can show why a case failed.
package assertions
