package credential

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/zalando/go-keyring"

	"github.com/Sternrassler/jam/pkg/logging"
)

const serviceName = "jam"

// KeyringStore keeps the credential in the system keychain, one entry per
// OAuth client id.
type KeyringStore struct {
	clientID string
	logger   zerolog.Logger
}

// NewKeyringStore creates a keychain-backed store for clientID.
func NewKeyringStore(clientID string) *KeyringStore {
	return &KeyringStore{
		clientID: clientID,
		logger:   logging.NewLogger("credential"),
	}
}

// KeyringAvailable probes the system keychain. JAM_NO_KEYRING disables it.
func KeyringAvailable() bool {
	if os.Getenv("JAM_NO_KEYRING") != "" {
		return false
	}

	testKey := "jam::probe"
	if err := keyring.Set(serviceName, testKey, "probe"); err != nil {
		return false
	}
	_ = keyring.Delete(serviceName, testKey)
	return true
}

// Name implements Store.
func (s *KeyringStore) Name() string { return "keyring" }

func (s *KeyringStore) key() string {
	return fmt.Sprintf("jam::%s", s.clientID)
}

// Load implements Store.
func (s *KeyringStore) Load(_ context.Context) (Credential, error) {
	data, err := keyring.Get(serviceName, s.key())
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("Keyring read failed, ignoring stored credential")
		}
		return Credential{}, nil
	}

	cred, err := decode([]byte(data))
	if err != nil {
		s.logger.Debug().Err(err).Msg("Corrupt keyring credential ignored")
		return Credential{}, nil
	}
	return cred, nil
}

// Save implements Store.
func (s *KeyringStore) Save(_ context.Context, cred Credential) error {
	data, err := encode(cred)
	if err != nil {
		return err
	}
	if err := keyring.Set(serviceName, s.key(), string(data)); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *KeyringStore) Clear(_ context.Context) error {
	if err := keyring.Delete(serviceName, s.key()); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}
