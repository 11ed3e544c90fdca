// Package pkguid provides helpers for generating unique identifiers.
//
// The codebase uses these interfaces to avoid hard-coding a specific UID
// strategy:
//   - String IDs (UUIDv7) identify uploaded files and requests.
//   - Numeric IDs (Snowflake) identify insight jobs, so they sort by creation time.
package pkguid
