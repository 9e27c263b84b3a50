package server

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBareSession(username string) *Session {
	return NewSession(nil, username, DefaultConfig(), testLogger())
}

func TestRegistryAttachLookupDetach(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(testLogger())

	h1 := newBareSession("alice")
	req.Nil(r.Attach("alice", h1))

	got, ok := r.Lookup("alice")
	req.True(ok)
	req.Same(h1, got)

	req.True(r.Detach("alice", h1))
	_, ok = r.Lookup("alice")
	req.False(ok)
}

func TestRegistryAttachReplacesLastWriterWins(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(testLogger())

	h1 := newBareSession("alice")
	h2 := newBareSession("alice")

	req.Nil(r.Attach("alice", h1))
	displaced := r.Attach("alice", h2)
	req.Same(h1, displaced)

	got, ok := r.Lookup("alice")
	req.True(ok)
	req.Same(h2, got)

	// A stale disconnect for the displaced session must be a no-op.
	req.False(r.Detach("alice", h1))
	got, ok = r.Lookup("alice")
	req.True(ok)
	req.Same(h2, got)

	// The current session detaches normally.
	req.True(r.Detach("alice", h2))
	_, ok = r.Lookup("alice")
	req.False(ok)
}

func TestRegistryDetachUnknownUser(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(testLogger())

	req.False(r.Detach("ghost", newBareSession("ghost")))
}

func TestRegistryUsernamesAndLen(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(testLogger())

	req.Empty(r.Usernames())
	req.Zero(r.Len())

	r.Attach("carol", newBareSession("carol"))
	r.Attach("alice", newBareSession("alice"))
	r.Attach("bob", newBareSession("bob"))

	req.Equal([]string{"alice", "bob", "carol"}, r.Usernames())
	req.Equal(3, r.Len())
}

func TestRegistryCloseAll(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(testLogger())

	sessions := make([]*Session, 3)
	for i := range sessions {
		name := fmt.Sprintf("user-%d", i)
		sessions[i] = newBareSession(name)
		r.Attach(name, sessions[i])
	}

	r.CloseAll(reasonShutdown)
	req.Zero(r.Len())

	// Every session must have been closed, so sends fail.
	for _, s := range sessions {
		req.False(s.Send([]byte("late")))
	}
}

func TestRegistryConcurrentLifecycles(t *testing.T) {
	req := require.New(t)
	r := NewRegistry(testLogger())

	const users = 8
	const rounds = 50

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := fmt.Sprintf("user-%d", n)
			for i := 0; i < rounds; i++ {
				s := newBareSession(name)
				r.Attach(name, s)
				r.Lookup(name)
				r.Detach(name, s)
			}
		}(u)
	}
	wg.Wait()

	req.Zero(r.Len())
}
