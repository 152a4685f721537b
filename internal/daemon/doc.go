// Package daemon runs the long-lived farsisub HTTP server the browser
// extension talks to.
//
// It owns startup, shutdown and the flock-based single-instance lock on the
// data directory, and serves the preload, cookie upload, health and metrics
// endpoints through a chi router. Pipeline logic stays in internal/preload;
// handlers here decode requests, map errors to status codes and encode
// responses.
package daemon
