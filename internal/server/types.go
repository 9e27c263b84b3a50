package server

import (
	"fmt"
	"strings"
)

// Envelope is the sole inbound frame format: a private message addressed to
// a recipient by username.
type Envelope struct {
	To  string `json:"to" validate:"required"`
	Msg string `json:"msg" validate:"required"`
}

// credentialsRequest is the JSON body of POST /register/ and POST /login/.
type credentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type usersResponse struct {
	Users []string `json:"users"`
}

// noticeMalformed is sent back to a sender whose frame was not a valid
// envelope. The session stays active.
const noticeMalformed = `error: invalid message format, expected {"to": "...", "msg": "..."}`

// formatDelivery renders a routed message as the recipient sees it.
func formatDelivery(sender, msg string) []byte {
	return []byte(sender + ": " + msg)
}

func noticeOffline(recipient string) []byte {
	return []byte(fmt.Sprintf("error: recipient %q is offline", recipient))
}

func noticeUndeliverable(recipient string) []byte {
	return []byte(fmt.Sprintf("error: could not deliver message to %q", recipient))
}

// Close reasons used on session termination.
const (
	reasonTokenMissing = "authentication token missing"
	reasonTokenInvalid = "authentication token invalid"
	reasonReplaced     = "session replaced by a newer connection"
	reasonShutdown     = "server shutting down"
)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
