// Package aggregate computes per-region latency and uptime summaries over an
// immutable telemetry Dataset.
//
// Compute(regions, thresholdMs, ds) is pure: for every requested region it
// selects the region's samples and derives
//
//	avg_latency  mean latency_ms, 2 decimals
//	p95_latency  nearest-rank 95th percentile (index ceil(0.95*n)-1), 2 decimals
//	avg_uptime   mean uptime, 4 decimals
//	breaches     samples with latency_ms strictly above the threshold
//
// Regions with no samples are omitted from the result. Validate rejects a
// request with no regions or no threshold with ErrInvalidRequest.
//
// Aggregator binds a Dataset at construction time and records per-region
// outcome counters; it is safe for concurrent use.
package aggregate
