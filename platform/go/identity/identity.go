// Package identity remembers which tenant email the local client acts as.
package identity

import (
	"fmt"

	"github.com/zenGate-Global/palmyra-reports/platform/go/tenant"
)

// Key is the local state entry holding the remembered email.
const Key = "user_email"

// KV is the subset of localstate.Store the identity store needs.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Store persists a single tenant email.
type Store struct {
	kv KV
}

// New wraps a key/value backend.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// Set validates and remembers email, replacing any previous identity.
func (s *Store) Set(email string) (tenant.Session, error) {
	session, err := tenant.NewSession(email)
	if err != nil {
		return tenant.Session{}, err
	}
	if err := s.kv.Set(Key, session.Email); err != nil {
		return tenant.Session{}, fmt.Errorf("persist identity: %w", err)
	}
	return session, nil
}

// Get returns the remembered email, if any.
func (s *Store) Get() (string, bool, error) {
	email, ok, err := s.kv.Get(Key)
	if err != nil {
		return "", false, fmt.Errorf("load identity: %w", err)
	}
	if !ok || email == "" {
		return "", false, nil
	}
	return email, true, nil
}

// Session resolves the remembered email into a tenant session.
// It returns ok=false when no usable identity is stored.
func (s *Store) Session() (tenant.Session, bool, error) {
	email, ok, err := s.Get()
	if err != nil || !ok {
		return tenant.Session{}, false, err
	}
	session, err := tenant.NewSession(email)
	if err != nil {
		return tenant.Session{}, false, nil
	}
	return session, true, nil
}

// Clear forgets the remembered email.
func (s *Store) Clear() error {
	if err := s.kv.Delete(Key); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	return nil
}
