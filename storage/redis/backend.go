package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/tokenforge/oauth2-engine/internal/util"
	"github.com/tokenforge/oauth2-engine/storage"
)

type clientJSON struct {
	ClientID   string   `json:"client_id"`
	SecretHash string   `json:"secret_hash"`
	GrantTypes []string `json:"grant_types"`
}

type userJSON struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
}

type authCodeJSON struct {
	ClientID  string `json:"client_id"`
	UserID    string `json:"user_id"`
	ExpiresAt int64  `json:"expires_at"`
}

type tokenJSON struct {
	Token     string `json:"token"`
	ClientID  string `json:"client_id"`
	UserID    string `json:"user_id"`
	ExpiresAt int64  `json:"expires_at,omitempty"` // unix seconds, 0 means no expiry
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

// RegisterClient adds a client with the given secret and allowed grant types.
// The secret is stored as a bcrypt hash.
func (s *Store) RegisterClient(ctx context.Context, clientID, secret string, grantTypes ...string) error {
	if err := validateID(clientID); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash client secret: %w", err)
	}

	record := clientJSON{ClientID: clientID, SecretHash: string(hash), GrantTypes: grantTypes}
	if err := s.setJSON(ctx, s.clientKey(clientID), record, 0); err != nil {
		return err
	}

	s.logger.Debug("Registered client", "client_id", clientID, "grant_types", grantTypes)
	return nil
}

// RegisterUser adds a user and returns its generated id. The password is
// stored as a bcrypt hash.
func (s *Store) RegisterUser(ctx context.Context, username, password string) (string, error) {
	if err := validateID(username); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	id := uuid.NewString()
	record := userJSON{ID: id, Username: username, PasswordHash: string(hash)}
	if err := s.setJSON(ctx, s.userKey(username), record, 0); err != nil {
		return "", err
	}
	return id, nil
}

// BindClientUser binds the principal the client_credentials grant resolves
// to for the given client.
func (s *Store) BindClientUser(ctx context.Context, clientID, userID string) error {
	if err := validateID(clientID); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.bindingKey(clientID), userID, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s failed: %w", s.bindingKey(clientID), err)
	}
	return nil
}

// MintAuthCode creates a single-use authorization code for the given client
// and user, valid for the given lifetime.
func (s *Store) MintAuthCode(ctx context.Context, clientID, userID string, lifetime time.Duration) (string, error) {
	if lifetime <= 0 {
		return "", fmt.Errorf("auth code lifetime must be positive")
	}
	code := uuid.NewString()
	expiresAt := time.Now().Add(lifetime)
	record := authCodeJSON{ClientID: clientID, UserID: userID, ExpiresAt: expiresAt.Unix()}
	if err := s.setJSON(ctx, s.codeKey(code), record, lifetime); err != nil {
		return "", err
	}

	s.logger.Debug("Minted auth code",
		"client_id", clientID,
		"code_prefix", util.SafeTruncate(code, tokenLogLength))
	return code, nil
}

// GetClient implements storage.CoreBackend.
func (s *Store) GetClient(ctx context.Context, clientID, clientSecret string) (*storage.Client, error) {
	if validateID(clientID) != nil {
		return nil, nil
	}
	var record clientJSON
	found, err := s.getJSON(ctx, s.clientKey(clientID), &record)
	if err != nil || !found {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(record.SecretHash), []byte(clientSecret)) != nil {
		return nil, nil
	}
	return &storage.Client{ID: record.ClientID}, nil
}

// IsGrantTypeAllowed implements storage.CoreBackend.
func (s *Store) IsGrantTypeAllowed(ctx context.Context, clientID, grantType string) (bool, error) {
	if validateID(clientID) != nil {
		return false, nil
	}
	var record clientJSON
	found, err := s.getJSON(ctx, s.clientKey(clientID), &record)
	if err != nil || !found {
		return false, err
	}
	for _, gt := range record.GrantTypes {
		if gt == grantType {
			return true, nil
		}
	}
	return false, nil
}

// SaveAccessToken implements storage.CoreBackend.
func (s *Store) SaveAccessToken(ctx context.Context, token *storage.AccessToken) error {
	if token == nil {
		return fmt.Errorf("invalid access token")
	}
	if err := validateToken(token.Token); err != nil {
		return err
	}
	record := tokenJSON{
		Token:     token.Token,
		ClientID:  token.ClientID,
		UserID:    token.UserID,
		ExpiresAt: unixOrZero(token.ExpiresAt),
	}
	if err := s.setJSON(ctx, s.accessTokenKey(token.Token), record, ttlFor(token.ExpiresAt)); err != nil {
		return err
	}

	s.logger.Debug("Saved access token",
		"client_id", token.ClientID,
		"user_id", token.UserID,
		"token_prefix", util.SafeTruncate(token.Token, tokenLogLength))
	return nil
}

// GetAccessToken looks up a persisted access token. Not part of the engine
// contracts; hosts use it to validate bearer tokens on protected resources.
func (s *Store) GetAccessToken(ctx context.Context, token string) (*storage.AccessToken, error) {
	if validateToken(token) != nil {
		return nil, nil
	}
	var record tokenJSON
	found, err := s.getJSON(ctx, s.accessTokenKey(token), &record)
	if err != nil || !found {
		return nil, err
	}
	return &storage.AccessToken{
		Token:     record.Token,
		ClientID:  record.ClientID,
		UserID:    record.UserID,
		ExpiresAt: timeOrZero(record.ExpiresAt),
	}, nil
}

// GetUser implements storage.PasswordBackend.
func (s *Store) GetUser(ctx context.Context, username, password string) (*storage.User, error) {
	if validateID(username) != nil {
		return nil, nil
	}
	var record userJSON
	found, err := s.getJSON(ctx, s.userKey(username), &record)
	if err != nil || !found {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}
	return &storage.User{ID: record.ID, Username: record.Username}, nil
}

// GetUserFromClient implements storage.ClientCredentialsBackend.
func (s *Store) GetUserFromClient(ctx context.Context, clientID, clientSecret string) (*storage.User, error) {
	client, err := s.GetClient(ctx, clientID, clientSecret)
	if err != nil || client == nil {
		return nil, err
	}

	userID, err := s.client.Get(ctx, s.bindingKey(clientID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s failed: %w", s.bindingKey(clientID), err)
	}
	return &storage.User{ID: userID}, nil
}

// GetAuthCode implements storage.AuthCodeBackend.
func (s *Store) GetAuthCode(ctx context.Context, code string) (*storage.AuthCode, error) {
	if validateToken(code) != nil {
		return nil, nil
	}
	var record authCodeJSON
	found, err := s.getJSON(ctx, s.codeKey(code), &record)
	if err != nil || !found {
		return nil, err
	}
	return &storage.AuthCode{
		ClientID:  record.ClientID,
		UserID:    record.UserID,
		ExpiresAt: time.Unix(record.ExpiresAt, 0),
	}, nil
}

// DeleteAuthCode removes a code once the host considers it consumed.
func (s *Store) DeleteAuthCode(ctx context.Context, code string) error {
	if err := validateToken(code); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.codeKey(code)).Err(); err != nil {
		return fmt.Errorf("redis del %s failed: %w", s.codeKey(code), err)
	}
	return nil
}

// GetRefreshToken implements storage.RefreshTokenBackend.
func (s *Store) GetRefreshToken(ctx context.Context, token string) (*storage.RefreshToken, error) {
	if validateToken(token) != nil {
		return nil, nil
	}
	var record tokenJSON
	found, err := s.getJSON(ctx, s.refreshTokenKey(token), &record)
	if err != nil || !found {
		return nil, err
	}
	return &storage.RefreshToken{
		Token:     record.Token,
		ClientID:  record.ClientID,
		UserID:    record.UserID,
		ExpiresAt: timeOrZero(record.ExpiresAt),
	}, nil
}

// SaveRefreshToken implements storage.RefreshTokenBackend.
func (s *Store) SaveRefreshToken(ctx context.Context, token *storage.RefreshToken) error {
	if token == nil {
		return fmt.Errorf("invalid refresh token")
	}
	if err := validateToken(token.Token); err != nil {
		return err
	}
	record := tokenJSON{
		Token:     token.Token,
		ClientID:  token.ClientID,
		UserID:    token.UserID,
		ExpiresAt: unixOrZero(token.ExpiresAt),
	}
	return s.setJSON(ctx, s.refreshTokenKey(token.Token), record, ttlFor(token.ExpiresAt))
}

// RevokeRefreshToken implements storage.RefreshTokenBackend.
func (s *Store) RevokeRefreshToken(ctx context.Context, token string) error {
	if err := validateToken(token); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.refreshTokenKey(token)).Err(); err != nil {
		return fmt.Errorf("redis del %s failed: %w", s.refreshTokenKey(token), err)
	}

	s.logger.Debug("Revoked refresh token",
		"token_prefix", util.SafeTruncate(token, tokenLogLength))
	return nil
}
