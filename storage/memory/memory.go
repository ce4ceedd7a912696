// Package memory provides an in-memory implementation of every backend
// capability group. It is suitable for development, testing, and
// single-instance deployments. Client secrets and user passwords are stored
// as bcrypt hashes; expiring records live in TTL caches that evict
// themselves.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/crypto/bcrypt"

	"github.com/tokenforge/oauth2-engine/internal/util"
	"github.com/tokenforge/oauth2-engine/security"
	"github.com/tokenforge/oauth2-engine/storage"
)

// tokenLogLength is the number of characters of a token to include in logs.
const tokenLogLength = 8

type clientRecord struct {
	id         string
	secretHash []byte
	grantTypes map[string]bool
	userID     string // bound principal for the client_credentials grant
}

type userRecord struct {
	id           string
	username     string
	passwordHash []byte
}

// Store is an in-memory backend implementing storage.CoreBackend,
// storage.PasswordBackend, storage.ClientCredentialsBackend,
// storage.AuthCodeBackend, and storage.RefreshTokenBackend.
type Store struct {
	mu      sync.RWMutex
	clients map[string]*clientRecord
	users   map[string]*userRecord // keyed by username

	authCodes     *ttlcache.Cache[string, *storage.AuthCode]
	accessTokens  *ttlcache.Cache[string, *storage.AccessToken]
	refreshTokens *ttlcache.Cache[string, *storage.RefreshToken]

	clock  security.Clock
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock sets the clock used when minting auth codes. Default: system clock.
func WithClock(clock security.Clock) Option {
	return func(s *Store) { s.clock = clock }
}

// New creates an empty in-memory store and starts its eviction loops.
// Call Stop when done.
func New(opts ...Option) *Store {
	s := &Store{
		clients:       make(map[string]*clientRecord),
		users:         make(map[string]*userRecord),
		authCodes:     newCache[*storage.AuthCode](),
		accessTokens:  newCache[*storage.AccessToken](),
		refreshTokens: newCache[*storage.RefreshToken](),
		clock:         security.SystemClock(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.authCodes.Start()
	go s.accessTokens.Start()
	go s.refreshTokens.Start()

	return s
}

func newCache[V any]() *ttlcache.Cache[string, V] {
	return ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, V](),
	)
}

// Stop terminates the eviction loops.
func (s *Store) Stop() {
	s.authCodes.Stop()
	s.accessTokens.Stop()
	s.refreshTokens.Stop()
}

// ttlFor converts a record expiry into a cache TTL. Records without an
// expiry, or already expired ones, are kept without a TTL; the engine's own
// expiry checks govern those.
func ttlFor(expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return ttlcache.NoTTL
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return ttlcache.NoTTL
	}
	return ttl
}

// RegisterClient adds a client with the given secret and allowed grant types.
// The secret is stored as a bcrypt hash.
func (s *Store) RegisterClient(clientID, secret string, grantTypes ...string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash client secret: %w", err)
	}

	allowed := make(map[string]bool, len(grantTypes))
	for _, gt := range grantTypes {
		allowed[gt] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clients[clientID]; exists {
		return fmt.Errorf("client %q already registered", clientID)
	}
	s.clients[clientID] = &clientRecord{id: clientID, secretHash: hash, grantTypes: allowed}

	s.logger.Debug("Registered client", "client_id", clientID, "grant_types", grantTypes)
	return nil
}

// RegisterUser adds a user and returns its generated id. The password is
// stored as a bcrypt hash.
func (s *Store) RegisterUser(username, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; exists {
		return "", fmt.Errorf("user %q already registered", username)
	}
	id := uuid.NewString()
	s.users[username] = &userRecord{id: id, username: username, passwordHash: hash}
	return id, nil
}

// BindClientUser binds the principal the client_credentials grant resolves
// to for the given client.
func (s *Store) BindClientUser(clientID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	client, ok := s.clients[clientID]
	if !ok {
		return fmt.Errorf("client %q not registered", clientID)
	}
	client.userID = userID
	return nil
}

// MintAuthCode creates a single-use authorization code for the given client
// and user, valid for the given lifetime.
func (s *Store) MintAuthCode(clientID, userID string, lifetime time.Duration) (string, error) {
	if lifetime <= 0 {
		return "", fmt.Errorf("auth code lifetime must be positive")
	}
	code := uuid.NewString()
	record := &storage.AuthCode{
		ClientID:  clientID,
		UserID:    userID,
		ExpiresAt: s.clock.Now().Add(lifetime),
	}
	s.authCodes.Set(code, record, ttlFor(record.ExpiresAt))

	s.logger.Debug("Minted auth code",
		"client_id", clientID,
		"code_prefix", util.SafeTruncate(code, tokenLogLength))
	return code, nil
}

// GetClient implements storage.CoreBackend.
func (s *Store) GetClient(_ context.Context, clientID, clientSecret string) (*storage.Client, error) {
	s.mu.RLock()
	client, ok := s.clients[clientID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword(client.secretHash, []byte(clientSecret)) != nil {
		return nil, nil
	}
	return &storage.Client{ID: client.id}, nil
}

// IsGrantTypeAllowed implements storage.CoreBackend.
func (s *Store) IsGrantTypeAllowed(_ context.Context, clientID, grantType string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.clients[clientID]
	if !ok {
		return false, nil
	}
	return client.grantTypes[grantType], nil
}

// SaveAccessToken implements storage.CoreBackend.
func (s *Store) SaveAccessToken(_ context.Context, token *storage.AccessToken) error {
	if token == nil || token.Token == "" {
		return fmt.Errorf("invalid access token")
	}
	s.accessTokens.Set(token.Token, token, ttlFor(token.ExpiresAt))

	s.logger.Debug("Saved access token",
		"client_id", token.ClientID,
		"user_id", token.UserID,
		"token_prefix", util.SafeTruncate(token.Token, tokenLogLength))
	return nil
}

// GetAccessToken looks up a persisted access token. Not part of the engine
// contracts; hosts use it to validate bearer tokens on protected resources.
func (s *Store) GetAccessToken(_ context.Context, token string) (*storage.AccessToken, error) {
	item := s.accessTokens.Get(token)
	if item == nil {
		return nil, nil
	}
	return item.Value(), nil
}

// GetUser implements storage.PasswordBackend.
func (s *Store) GetUser(_ context.Context, username, password string) (*storage.User, error) {
	s.mu.RLock()
	user, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)) != nil {
		return nil, nil
	}
	return &storage.User{ID: user.id, Username: user.username}, nil
}

// GetUserFromClient implements storage.ClientCredentialsBackend.
func (s *Store) GetUserFromClient(ctx context.Context, clientID, clientSecret string) (*storage.User, error) {
	client, err := s.GetClient(ctx, clientID, clientSecret)
	if err != nil || client == nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.clients[clientID]
	if !ok || record.userID == "" {
		return nil, nil
	}
	return &storage.User{ID: record.userID}, nil
}

// GetAuthCode implements storage.AuthCodeBackend.
func (s *Store) GetAuthCode(_ context.Context, code string) (*storage.AuthCode, error) {
	item := s.authCodes.Get(code)
	if item == nil {
		return nil, nil
	}
	return item.Value(), nil
}

// DeleteAuthCode removes a code once the host considers it consumed.
func (s *Store) DeleteAuthCode(_ context.Context, code string) error {
	s.authCodes.Delete(code)
	return nil
}

// GetRefreshToken implements storage.RefreshTokenBackend.
func (s *Store) GetRefreshToken(_ context.Context, token string) (*storage.RefreshToken, error) {
	item := s.refreshTokens.Get(token)
	if item == nil {
		return nil, nil
	}
	return item.Value(), nil
}

// SaveRefreshToken implements storage.RefreshTokenBackend.
func (s *Store) SaveRefreshToken(_ context.Context, token *storage.RefreshToken) error {
	if token == nil || token.Token == "" {
		return fmt.Errorf("invalid refresh token")
	}
	s.refreshTokens.Set(token.Token, token, ttlFor(token.ExpiresAt))
	return nil
}

// RevokeRefreshToken implements storage.RefreshTokenBackend.
func (s *Store) RevokeRefreshToken(_ context.Context, token string) error {
	s.refreshTokens.Delete(token)

	s.logger.Debug("Revoked refresh token",
		"token_prefix", util.SafeTruncate(token, tokenLogLength))
	return nil
}
