package credential

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/jam/pkg/logging"
)

// Backend names accepted by NewStore.
const (
	BackendFile    = "file"
	BackendKeyring = "keyring"
	BackendRedis   = "redis"
)

// Options select and configure a Store.
type Options struct {
	// Backend is one of BackendFile, BackendKeyring, BackendRedis (default file)
	Backend string

	// Dir holds the token file for the file backend
	Dir string

	// ClientID keys keyring and Redis entries
	ClientID string

	// Redis is required for the redis backend
	Redis *redis.Client
}

// NewStore returns the Store for opts.Backend. The keyring backend falls back
// to the file backend when no keychain is available.
func NewStore(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileStore(opts.Dir), nil
	case BackendKeyring:
		if KeyringAvailable() {
			return NewKeyringStore(opts.ClientID), nil
		}
		fallback := NewFileStore(opts.Dir)
		logger := logging.NewLogger("credential")
		logger.Warn().
			Str("path", fallback.Path()).
			Msg("System keyring unavailable, token stored in plaintext")
		return fallback, nil
	case BackendRedis:
		if opts.Redis == nil {
			return nil, fmt.Errorf("redis credential store requires redis_url")
		}
		return NewRedisStore(opts.Redis, opts.ClientID), nil
	default:
		return nil, fmt.Errorf("unknown credential store %q (want file, keyring or redis)", opts.Backend)
	}
}
