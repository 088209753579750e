package credential

import (
	"context"
	"fmt"
	"sync"
)

// Session holds the credential for the duration of one command. It is opened
// before the command runs and closed after it, which writes the credential
// back exactly once.
type Session struct {
	store Store

	mu     sync.Mutex
	cred   Credential
	closed bool
}

// Open loads the stored credential into a new session.
func Open(ctx context.Context, store Store) (*Session, error) {
	cred, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credential from %s store: %w", store.Name(), err)
	}
	return &Session{store: store, cred: cred}, nil
}

// Credential returns the current credential.
func (s *Session) Credential() Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred
}

// Update replaces the current credential. It is persisted on Close.
func (s *Session) Update(cred Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = cred
}

// Store returns the backing store.
func (s *Session) Store() Store {
	return s.store
}

// Close persists the current credential. Saving an unchanged credential is
// harmless. Only the first call writes.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.store.Save(ctx, s.cred); err != nil {
		return fmt.Errorf("save credential to %s store: %w", s.store.Name(), err)
	}
	return nil
}

// Discard clears the backing store and ends the session. A later Close does
// not write the credential back.
func (s *Session) Discard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = Credential{}
	s.closed = true

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear %s store: %w", s.store.Name(), err)
	}
	return nil
}
