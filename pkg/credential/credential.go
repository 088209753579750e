// Package credential persists the bearer token obtained by the
// client-credentials exchange between invocations.
//
// A Store reads and writes one Credential. Missing or unreadable records are
// never an error on Load: the caller simply starts without a token and the
// token provider exchanges a new one.
package credential

import (
	"context"
	"encoding/json"
	"time"
)

// Credential is a bearer token and its expiry. Either both fields are set or
// neither is.
type Credential struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// New returns a credential for token valid for ttl from now.
func New(token string, ttl time.Duration, now time.Time) Credential {
	return Credential{AccessToken: token, ExpiresAt: now.Add(ttl).UTC()}
}

// IsZero reports whether no token is held.
func (c Credential) IsZero() bool {
	return c.AccessToken == "" || c.ExpiresAt.IsZero()
}

// Expired reports whether the token must be refreshed at now. An empty
// credential is always expired.
func (c Credential) Expired(now time.Time) bool {
	return c.IsZero() || !c.ExpiresAt.After(now)
}

// Store persists a single credential.
type Store interface {
	// Load returns the stored credential, or an empty one if nothing usable
	// is stored.
	Load(ctx context.Context) (Credential, error)

	// Save replaces the stored credential.
	Save(ctx context.Context, cred Credential) error

	// Clear removes the stored credential.
	Clear(ctx context.Context) error

	// Name identifies the backend ("file", "keyring", "redis").
	Name() string
}

// decode parses a stored record. Half-populated records are treated as empty.
func decode(data []byte) (Credential, error) {
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return Credential{}, err
	}
	if cred.IsZero() {
		return Credential{}, nil
	}
	return cred, nil
}
