// Package api hosts the HTTP server, middleware, and REST handlers for the
// aggregation engine. Routes:
//   - GET /healthz and /readyz for health checks.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/sources lists the registered adapters.
//   - GET and POST /v1/search run one aggregated search and return the report.
//   - GET /v1/intern/sources and GET or POST /v1/intern do the same for
//     internship listings when an internship searcher is configured.
package api
