// Package shared holds helpers used across internal packages.
//
// The testutil subpackage provides an in-memory slog handler for asserting
// on log output in tests.
package shared
