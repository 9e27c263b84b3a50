package server

import "net/http"

// Routes configures and returns an HTTP ServeMux with all application
// routes: credential endpoints, user listings, health check, and the
// WebSocket endpoint.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /register/{$}", s.handleRegister)
	mux.HandleFunc("POST /login/{$}", s.handleLogin)
	mux.HandleFunc("GET /users/{$}", s.handleUsers)
	mux.HandleFunc("GET /users/online/{$}", s.handleOnlineUsers)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}
