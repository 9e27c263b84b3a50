package server

import (
	"encoding/json"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
)

// Router validates inbound envelopes, resolves recipients in the registry,
// and forwards or reports non-delivery. Delivery is best-effort: there is no
// queuing and no retry, and a miss is reported back to the sender rather
// than treated as an error.
type Router struct {
	registry *Registry
	validate *validator.Validate
	log      *slog.Logger
}

// NewRouter creates a router resolving recipients in registry.
func NewRouter(registry *Registry, log *slog.Logger) *Router {
	return &Router{
		registry: registry,
		validate: validator.New(),
		log:      log,
	}
}

// Route handles one raw frame from sender. Malformed frames and routing
// misses are reported to the sender as notice frames; the sender's session
// stays active in every case. Self-addressed envelopes are delivered like
// any other.
func (rt *Router) Route(sender *Session, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		sender.Send([]byte(noticeMalformed))
		return
	}
	if err := rt.validate.Struct(env); err != nil {
		sender.Send([]byte(noticeMalformed))
		return
	}

	recipient, online := rt.registry.Lookup(env.To)
	if !online {
		sender.Send(noticeOffline(env.To))
		return
	}

	if recipient.Send(formatDelivery(sender.Username(), env.Msg)) {
		return
	}

	// The recipient's session is defunct or its buffer is saturated: report
	// the failure and evict the stale session if it is still the registered
	// one. Compare-and-remove keeps a racing reconnect untouched.
	rt.log.Warn("delivery failed, evicting stale session",
		"from", sender.Username(), "to", env.To, "session", recipient.ID())
	if rt.registry.Detach(env.To, recipient) {
		recipient.CloseWithReason(websocket.CloseGoingAway, "unresponsive session")
	}
	sender.Send(noticeUndeliverable(env.To))
}
