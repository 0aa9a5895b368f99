// Package http implements the HTTP handlers of the seasonal adjustment
// server. Handlers decode and bind requests with go-chi/render, call a
// service and render the result; failures become RFC 7807 problem details
// through the shared error handler.
//
// Routes, mounted under /api by the application router:
//
//	POST /v1/adjust   records + options, returns records with adjusted columns
//	POST /v1/custom   runs a caller-managed specification once, confined to
//	                  the configured spec root
//	GET  /health      liveness of the process
//	GET  /health/ready  x13 binary and work directory readiness
//	GET  /health/live   runtime details
//	GET  /version     build and platform information
package http
