// Package server provides the loopback HTTP plumbing for CLI OAuth flows.
//
// When the user runs `tracktalk auth login`, a temporary HTTP server starts on
// localhost, receives the provider's authorization callback, exchanges the
// code for tokens, and shuts down. The [CallbackHandler] validates the state
// parameter for CSRF protection, processes at most one callback, and delivers
// the outcome through a channel.
//
// The [Router] wraps [http.ServeMux] with a small middleware stack so request
// logging can be layered on without touching the handlers.
package server
