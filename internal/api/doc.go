// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/score/page and /v1/score/link to score ad-hoc input with the
//     crawl's scorers.
//   - GET /v1/breaker and /v1/breaker/{domain} for blacklist state.
//   - GET /v1/run for the progress of the current crawl.
package api
