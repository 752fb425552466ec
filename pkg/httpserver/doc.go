// Package httpserver provides an http.Server wrapper with environment based
// configuration, graceful shutdown on SIGINT/SIGTERM, and plain text
// liveness/readiness probe handlers.
package httpserver
