package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *CredentialStore {
	t.Helper()
	s, err := NewCredentialStore()
	require.NoError(t, err)
	return s
}

func TestRegisterAndVerify(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)

	req.NoError(s.Register("alice", "pw1"))
	req.True(s.Verify("alice", "pw1"))
	req.False(s.Verify("alice", "pw2"))
}

func TestRegisterDuplicate(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)

	req.NoError(s.Register("alice", "pw1"))
	err := s.Register("alice", "other")
	req.ErrorIs(err, ErrDuplicateUser)

	// The original registration must survive the failed attempt.
	req.True(s.Verify("alice", "pw1"))
	req.False(s.Verify("alice", "other"))
}

func TestRegisterIsCaseSensitive(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)

	req.NoError(s.Register("alice", "pw1"))
	req.NoError(s.Register("Alice", "pw2"))
	req.True(s.Verify("alice", "pw1"))
	req.True(s.Verify("Alice", "pw2"))
	req.False(s.Verify("ALICE", "pw1"))
}

func TestVerifyUnknownUser(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)

	req.False(s.Verify("nobody", "pw"))
}

func TestUsernamesSortedSnapshot(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)

	req.Empty(s.Usernames())

	req.NoError(s.Register("carol", "pw"))
	req.NoError(s.Register("alice", "pw"))
	req.NoError(s.Register("bob", "pw"))

	req.Equal([]string{"alice", "bob", "carol"}, s.Usernames())
}

func TestConcurrentRegistration(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	// Everyone races for the same username; exactly one must win.
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs <- s.Register("shared", fmt.Sprintf("pw-%d", n))
		}(i)
	}
	wg.Wait()
	close(errs)

	var failures int
	for err := range errs {
		if err != nil {
			req.ErrorIs(err, ErrDuplicateUser)
			failures++
		}
	}
	req.Equal(workers-1, failures)
	req.Equal([]string{"shared"}, s.Usernames())
}
