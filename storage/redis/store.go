// Package redis provides a Redis-backed implementation of every backend
// capability group. Records are stored as JSON values under a configurable
// key prefix; expiring records carry a matching Redis TTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultKeyPrefix is the default prefix for all Redis keys.
	DefaultKeyPrefix = "oauth2:"

	// MaxTokenLength is the maximum allowed length for token and code
	// strings. Prevents unbounded keys from hostile input.
	MaxTokenLength = 512

	// MaxIDLength is the maximum allowed length for identifiers.
	MaxIDLength = 256

	// connectionVerifyTimeout bounds the initial PING.
	connectionVerifyTimeout = 5 * time.Second

	// tokenLogLength is the number of characters of a token to include in logs.
	tokenLogLength = 8
)

var errInputTooLarge = errors.New("input exceeds maximum allowed size")

// Config holds configuration for the Redis storage backend.
type Config struct {
	// Address is the Redis server address (required), e.g. "localhost:6379".
	Address string

	// Password is the optional password for Redis authentication.
	Password string

	// DB is the optional database number (default 0).
	DB int

	// KeyPrefix is the prefix for all keys (default "oauth2:").
	KeyPrefix string

	// Logger is the optional structured logger (default: slog.Default()).
	Logger *slog.Logger
}

// Store is a Redis-backed backend implementing storage.CoreBackend,
// storage.PasswordBackend, storage.ClientCredentialsBackend,
// storage.AuthCodeBackend, and storage.RefreshTokenBackend.
type Store struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// New creates a Store and verifies the connection.
func New(ctx context.Context, config Config) (*Store, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectionVerifyTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Address, err)
	}

	return &Store{
		client: client,
		prefix: config.KeyPrefix,
		logger: config.Logger,
	}, nil
}

// NewWithClient wraps an existing Redis client. The caller keeps ownership
// of the client's lifecycle.
func NewWithClient(client *redis.Client, keyPrefix string, logger *slog.Logger) *Store {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, prefix: keyPrefix, logger: logger}
}

// Close releases the underlying Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) clientKey(clientID string) string { return s.prefix + "client:" + clientID }
func (s *Store) userKey(username string) string   { return s.prefix + "user:" + username }
func (s *Store) bindingKey(clientID string) string {
	return s.prefix + "clientuser:" + clientID
}
func (s *Store) codeKey(code string) string         { return s.prefix + "code:" + code }
func (s *Store) accessTokenKey(token string) string { return s.prefix + "at:" + token }
func (s *Store) refreshTokenKey(token string) string {
	return s.prefix + "rt:" + token
}

func validateToken(token string) error {
	if token == "" || len(token) > MaxTokenLength {
		return errInputTooLarge
	}
	return nil
}

func validateID(id string) error {
	if id == "" || len(id) > MaxIDLength {
		return errInputTooLarge
	}
	return nil
}

// ttlFor converts a record expiry into a Redis TTL. Records without an
// expiry, or already expired ones, are stored without a TTL; the engine's
// own expiry checks govern those.
func ttlFor(expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return 0
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return 0
	}
	return ttl
}

func (s *Store) getJSON(ctx context.Context, key string, out any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s failed: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal record at %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record for %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s failed: %w", key, err)
	}
	return nil
}
