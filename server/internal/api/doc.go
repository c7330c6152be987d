// Package api implements the HTTP surface of regionmetrics.
//
// New(agg, cfg, logger, metricsHandler) returns an http.Handler that serves:
//
//	POST <route>      for each of server.routes (default "/" and "/api"):
//	                  {"regions": [...], "threshold_ms": n} -> region summaries
//	OPTIONS <route>   CORS preflight
//	GET  /healthz     liveness plus dataset size
//	GET  /metrics     Prometheus exposition (path configurable, optional)
//
// All JSON endpoints:
//   - Respond with Content-Type: application/json
//   - Report failures as {"error": "..."} with 400, 401, 404, 405 or 413
//   - Carry an X-Request-ID header, echoed from the request or generated
package api
