// Package server implements the HTTP and WebSocket surface of the terminal
// messenger: credential endpoints, the authenticated session handshake, the
// connection registry, and private message routing.
//
// The implementation is organized into specialized files for configuration,
// the registry, per-connection sessions, routing, and HTTP handlers to keep
// the codebase maintainable and testable as the project grows.
package server
