package server

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the deadline for a single write to the peer.
	writeWait = 10 * time.Second
	// pongWait is how long a connection may stay silent before the reader
	// gives up on it.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait so pings keep the read
	// deadline refreshed.
	pingPeriod = 54 * time.Second
)

// Session is the live connection handle for one authenticated user. It owns
// the underlying WebSocket connection through a read pump and a write pump;
// other sessions interact with it only via the non-blocking Send, so a slow
// or dead peer never stalls a sender's read loop.
type Session struct {
	id       string
	username string
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	log      *slog.Logger
}

// NewSession wraps an upgraded connection for the given authenticated user.
func NewSession(conn *websocket.Conn, username string, cfg Config, log *slog.Logger) *Session {
	id := uuid.NewString()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	return &Session{
		id:       id,
		username: username,
		conn:     conn,
		send:     make(chan []byte, cfg.SendBufferSize),
		done:     make(chan struct{}),
		log:      log.With("username", username, "session", id),
	}
}

// ID returns the session's unique identifier, used for logging.
func (s *Session) ID() string { return s.id }

// Username returns the authenticated username bound to this session.
func (s *Session) Username() string { return s.username }

// Send queues a frame for delivery without blocking. It reports false when
// the session is closed or its outbound buffer is full; the caller treats
// either as a delivery failure.
func (s *Session) Send(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// CloseWithReason sends a close frame carrying code and reason, then tears
// the connection down. Safe to call from any goroutine and more than once.
func (s *Session) CloseWithReason(code int, reason string) {
	if s.conn != nil {
		deadline := time.Now().Add(writeWait)
		message := websocket.FormatCloseMessage(code, reason)
		if err := s.conn.WriteControl(websocket.CloseMessage, message, deadline); err != nil {
			if !isExpectedCloseError(err) {
				s.log.Debug("error writing close frame", "error", err)
			}
		}
	}
	s.close()
}

// close releases the transport and stops the write pump. Idempotent.
func (s *Session) close() {
	s.once.Do(func() {
		close(s.done)
		if s.conn == nil {
			return
		}
		if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
			s.log.Debug("error closing connection", "error", err)
		}
	})
}

// readPump reads inbound frames and hands them to the router until the
// transport terminates, then detaches the session from the registry with
// compare-and-remove semantics. It runs on the connection's handler
// goroutine; closing the connection from elsewhere unblocks it.
func (s *Session) readPump(registry *Registry, router *Router) {
	defer func() {
		registry.Detach(s.username, s)
		s.close()
	}()

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.log.Warn("error setting read deadline", "error", err)
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			s.logReadTermination(err)
			return
		}
		router.Route(s, frame)
	}
}

func (s *Session) logReadTermination(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		s.log.Warn("inbound frame exceeded read limit")
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		s.log.Info("peer disconnected")
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		s.log.Info("connection closed")
	default:
		s.log.Warn("read error", "error", err)
	}
}

// writePump drains the outbound buffer to the peer and keeps the connection
// alive with periodic pings. It exits when the session closes or a write
// fails; a write failure closes the session so the read pump unblocks too.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case <-s.done:
			return

		case frame := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.log.Warn("error setting write deadline", "error", err)
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !isExpectedCloseError(err) {
					s.log.Warn("write error", "error", err)
				}
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.log.Warn("error setting write deadline for ping", "error", err)
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if !isExpectedCloseError(err) {
					s.log.Warn("ping error", "error", err)
				}
				return
			}
		}
	}
}
