// Package pkgerror defines shared error types and sentinel errors used across
// the application.
//
// It keeps error handling consistent by:
//   - Providing sentinel errors that can be checked with errors.Is.
//   - Providing a structured Error type that carries a message, type, and code,
//     which the router maps to HTTP status codes at the edge.
//   - Separating upstream (gateway) failures from local server faults so a
//     failed model call surfaces as 502 rather than 500.
package pkgerror
