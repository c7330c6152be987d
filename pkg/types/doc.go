// Package types defines the Go types shared by the server packages and the
// CLI: telemetry samples, the metrics request body, and per-region summaries.
// They double as the JSON wire format of the HTTP endpoint.
package types
