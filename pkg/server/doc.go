// Package server assembles the entity store, its HTTP resource and the
// operational endpoints into a runnable HTTP server.
//
// Routes served in addition to the entity resource:
//
//	GET    /health                  liveness probe
//	GET    /metrics                 Prometheus exposition of store counters
//	GET    /admin/stats             store and operation counters as JSON
//	POST   /admin/reset             restore the seed data
//	DELETE /admin/entities          remove every entity
//	GET    {base}/openapi.json      OpenAPI document (also openapi.yaml)
//	GET    {base}/{resource}/events websocket change feed (singleton scope)
//
// Every request passes through request id, access log and panic recovery
// middleware.
package server
