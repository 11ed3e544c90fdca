// Package pkgroutine contains helpers for running goroutines safely.
//
// The Manager type limits concurrency, collects returned errors, and logs
// panics with the task name so that background ingestion does not crash the
// process silently.
package pkgroutine
