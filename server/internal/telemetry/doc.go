// Package telemetry holds the immutable telemetry dataset the service answers
// from, and the loaders that build it at startup.
//
// A Dataset is constructed once (New, LoadJSON, LoadSQLite or Load) and is
// never mutated afterwards, so it can be shared by any number of concurrent
// requests without locking. Accessors hand out copies.
//
// Supported sources:
//   - json: a JSON array of {region, latency_ms, uptime|uptime_pct} objects
//   - sqlite: a table with region, latency_ms and uptime columns
package telemetry
