// Package integration contains end-to-end tests that exercise the messenger
// through its real HTTP and WebSocket surface, the way a conforming client
// would.
package integration

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andreireporter13/terminal-messenger/test/testhelpers"
)

func TestHealthEndpoint(t *testing.T) {
	req := require.New(t)
	m := testhelpers.Start(t)

	resp, err := http.Get(m.HTTP.URL + "/healthz")
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("text/plain", resp.Header.Get("Content-Type"))
}

func TestRegisterLoginFlow(t *testing.T) {
	req := require.New(t)
	m := testhelpers.Start(t)

	status, body := m.PostJSON(t, "/register/", map[string]string{"username": "alice", "password": "pw1"})
	req.Equal(http.StatusOK, status)
	req.Equal("User created successfully", body["message"])

	// Duplicate registration is a client error, not a crash.
	status, body = m.PostJSON(t, "/register/", map[string]string{"username": "alice", "password": "pw1"})
	req.Equal(http.StatusBadRequest, status)
	req.NotEmpty(body["error"])

	status, body = m.PostJSON(t, "/login/", map[string]string{"username": "alice", "password": "pw1"})
	req.Equal(http.StatusOK, status)
	req.Equal("bearer", body["token_type"])
	req.NotEmpty(body["access_token"])
}

func TestLoginWithWrongPassword(t *testing.T) {
	req := require.New(t)
	m := testhelpers.Start(t)
	m.Register(t, "alice", "pw1")

	status, body := m.PostJSON(t, "/login/", map[string]string{"username": "alice", "password": "nope"})
	req.Equal(http.StatusUnauthorized, status)
	req.NotContains(body, "access_token")
}

func TestUsersListings(t *testing.T) {
	req := require.New(t)
	m := testhelpers.Start(t)
	m.Register(t, "bob", "pw")
	m.Register(t, "alice", "pw")

	var listing struct {
		Users []string `json:"users"`
	}

	resp, err := http.Get(m.HTTP.URL + "/users/")
	req.NoError(err)
	defer resp.Body.Close()
	req.NoError(json.NewDecoder(resp.Body).Decode(&listing))
	req.Equal([]string{"alice", "bob"}, listing.Users)

	// Registered but not connected: the online listing stays empty.
	resp, err = http.Get(m.HTTP.URL + "/users/online/")
	req.NoError(err)
	defer resp.Body.Close()
	req.NoError(json.NewDecoder(resp.Body).Decode(&listing))
	req.Empty(listing.Users)

	m.Connect(t, m.Login(t, "alice", "pw"))
	m.WaitOnline(t, 1)

	resp, err = http.Get(m.HTTP.URL + "/users/online/")
	req.NoError(err)
	defer resp.Body.Close()
	req.NoError(json.NewDecoder(resp.Body).Decode(&listing))
	req.Equal([]string{"alice"}, listing.Users)
}

func TestEndpointMethodRestrictions(t *testing.T) {
	req := require.New(t)
	m := testhelpers.Start(t)

	resp, err := http.Get(m.HTTP.URL + "/register/")
	req.NoError(err)
	resp.Body.Close()
	req.Equal(http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(m.HTTP.URL+"/users/", "application/json", nil)
	req.NoError(err)
	resp.Body.Close()
	req.Equal(http.StatusMethodNotAllowed, resp.StatusCode)
}
