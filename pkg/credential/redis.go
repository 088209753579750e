package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/jam/pkg/logging"
)

// RedisStore shares one credential between hosts through Redis. The key
// expires together with the token.
type RedisStore struct {
	redis    *redis.Client
	clientID string
	logger   zerolog.Logger
}

// NewRedisStore creates a Redis-backed store for clientID.
func NewRedisStore(client *redis.Client, clientID string) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis:    client,
		clientID: clientID,
		logger:   logging.NewLogger("credential"),
	}
}

// Name implements Store.
func (s *RedisStore) Name() string { return "redis" }

// Key returns the Redis key holding the credential.
func (s *RedisStore) Key() string {
	return "jam:credential:" + s.clientID
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (Credential, error) {
	data, err := s.redis.Get(ctx, s.Key()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("Redis read failed, ignoring stored credential")
		}
		return Credential{}, nil
	}

	cred, err := decode(data)
	if err != nil {
		s.logger.Debug().Err(err).Str("key", s.Key()).Msg("Corrupt credential record ignored")
		return Credential{}, nil
	}
	return cred, nil
}

// Save implements Store. Expired or empty credentials remove the key.
func (s *RedisStore) Save(ctx context.Context, cred Credential) error {
	ttl := time.Until(cred.ExpiresAt)
	if cred.IsZero() || ttl <= 0 {
		return s.Clear(ctx)
	}

	data, err := encode(cred)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.Key(), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.Key()).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func encode(cred Credential) ([]byte, error) {
	data, err := json.Marshal(cred)
	if err != nil {
		return nil, fmt.Errorf("encode credential: %w", err)
	}
	return data, nil
}
