package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/andreireporter13/terminal-messenger/internal/auth"
	"github.com/andreireporter13/terminal-messenger/internal/store"
)

// Server ties the credential store, token service, registry and router
// together behind the HTTP surface.
type Server struct {
	cfg      Config
	log      *slog.Logger
	users    *store.CredentialStore
	tokens   *auth.TokenService
	registry *Registry
	router   *Router
	upgrader websocket.Upgrader
	validate *validator.Validate
}

// New assembles a Server from its collaborators. The credential store and
// token service are injected so their lifecycle stays with the caller.
func New(cfg Config, log *slog.Logger, users *store.CredentialStore, tokens *auth.TokenService) *Server {
	registry := NewRegistry(log)
	origins := newOriginPolicy(cfg.AllowedOrigins, log)

	return &Server{
		cfg:      cfg,
		log:      log,
		users:    users,
		tokens:   tokens,
		registry: registry,
		router:   NewRouter(registry, log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.check,
		},
		validate: validator.New(),
	}
}

// Registry exposes the connection registry for shutdown coordination.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Shutdown closes every active session with a shutdown reason.
func (s *Server) Shutdown() {
	s.registry.CloseAll(reasonShutdown)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

// decodeCredentials parses and validates a register/login request body.
func (s *Server) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return credentialsRequest{}, false
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, http.StatusBadRequest, "username and password are required")
		return credentialsRequest{}, false
	}
	return req, true
}

// handleRegister handles POST /register/.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}

	if err := s.users.Register(req.Username, req.Password); err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			s.writeError(w, http.StatusBadRequest, "user already registered")
			return
		}
		s.log.Error("registration failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	s.log.Info("user registered", "username", req.Username)
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "User created successfully"})
}

// handleLogin handles POST /login/. Unknown usernames and wrong passwords
// produce the same response.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}

	if !s.users.Verify(req.Username, req.Password) {
		s.writeError(w, http.StatusUnauthorized, "incorrect username or password")
		return
	}

	token, err := s.tokens.Issue(req.Username)
	if err != nil {
		s.log.Error("token issuance failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	s.log.Info("user logged in", "username", req.Username)
	s.writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "bearer"})
}

// handleUsers handles GET /users/: every username ever registered.
func (s *Server) handleUsers(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, usersResponse{Users: s.users.Usernames()})
}

// handleOnlineUsers handles GET /users/online/: currently connected users.
func (s *Server) handleOnlineUsers(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, usersResponse{Users: s.registry.Usernames()})
}

// handleHealth provides a plain text liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("terminal-messenger is running"))
}

// handleWebSocket upgrades the transport and runs the session handshake:
// the connection is accepted first, then the token from the query string is
// validated. A connection that never presents a valid token is closed with a
// policy-violation close frame and is never attached to the registry.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	if token == "" {
		s.rejectConnection(conn, reasonTokenMissing)
		return
	}

	username, ok := s.tokens.Validate(token)
	if !ok {
		s.rejectConnection(conn, reasonTokenInvalid)
		return
	}

	session := NewSession(conn, username, s.cfg, s.log)

	// Last writer wins: a prior session for the same user is displaced and
	// closed here, not by the registry.
	if displaced := s.registry.Attach(username, session); displaced != nil {
		displaced.CloseWithReason(websocket.CloseNormalClosure, reasonReplaced)
	}

	go session.writePump()
	session.readPump(s.registry, s.router)
}

// rejectConnection terminates a handshake that failed authentication with a
// clear reason frame.
func (s *Server) rejectConnection(conn *websocket.Conn, reason string) {
	s.log.Warn("rejected unauthenticated connection", "reason", reason)
	deadline := time.Now().Add(writeWait)
	message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, message, deadline)
	_ = conn.Close()
}
