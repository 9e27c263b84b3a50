// Package store holds the in-memory credential store for registered users.
// State is deliberately volatile: records live for the process lifetime and
// are never persisted.
package store

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/andreireporter13/terminal-messenger/internal/auth"
)

// ErrDuplicateUser is returned by Register when the username is taken.
var ErrDuplicateUser = errors.New("username already registered")

type userRecord struct {
	username string
	verifier string
}

// CredentialStore maps usernames to password verifiers. All access goes
// through its methods; the underlying map is never handed out.
type CredentialStore struct {
	mu    sync.RWMutex
	users map[string]userRecord

	// decoyVerifier is compared against when a username is unknown, so a
	// failed login costs the same whether or not the user exists.
	decoyVerifier string
}

// NewCredentialStore creates an empty store.
func NewCredentialStore() (*CredentialStore, error) {
	decoy, err := auth.HashPassword(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("preparing credential store: %w", err)
	}
	return &CredentialStore{
		users:         make(map[string]userRecord),
		decoyVerifier: decoy,
	}, nil
}

// Register creates a record for username, storing only the derived verifier.
// Usernames are matched case-sensitively; a second registration for the same
// name fails with ErrDuplicateUser.
func (s *CredentialStore) Register(username, password string) error {
	verifier, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return ErrDuplicateUser
	}
	s.users[username] = userRecord{username: username, verifier: verifier}
	return nil
}

// Verify reports whether username exists with a matching password. Unknown
// usernames and wrong passwords are indistinguishable: both return false,
// and the unknown-user path still performs a full verifier comparison.
func (s *CredentialStore) Verify(username, password string) bool {
	s.mu.RLock()
	record, exists := s.users[username]
	s.mu.RUnlock()

	if !exists {
		_, _ = auth.ComparePassword(password, s.decoyVerifier)
		return false
	}

	match, err := auth.ComparePassword(password, record.verifier)
	return err == nil && match
}

// Usernames returns a sorted snapshot of every registered username.
func (s *CredentialStore) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := lo.Keys(s.users)
	slices.Sort(names)
	return names
}
