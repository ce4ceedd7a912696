// Package mock provides scripted implementations of the backend capability
// contracts for testing. Every method is overridable per test and every call
// is counted.
package mock

import (
	"context"
	"sync"

	"github.com/tokenforge/oauth2-engine/security"
	"github.com/tokenforge/oauth2-engine/storage"
)

// Backend is a scripted implementation of every storage capability group.
// The zero behavior of each lookup is "not found"; assign the corresponding
// Func field to script a different outcome.
type Backend struct {
	mu sync.Mutex

	GetClientFunc          func(ctx context.Context, clientID, clientSecret string) (*storage.Client, error)
	IsGrantTypeAllowedFunc func(ctx context.Context, clientID, grantType string) (bool, error)
	SaveAccessTokenFunc    func(ctx context.Context, token *storage.AccessToken) error
	GetUserFunc            func(ctx context.Context, username, password string) (*storage.User, error)
	GetUserFromClientFunc  func(ctx context.Context, clientID, clientSecret string) (*storage.User, error)
	GetAuthCodeFunc        func(ctx context.Context, code string) (*storage.AuthCode, error)
	GetRefreshTokenFunc    func(ctx context.Context, token string) (*storage.RefreshToken, error)
	SaveRefreshTokenFunc   func(ctx context.Context, token *storage.RefreshToken) error
	RevokeRefreshTokenFunc func(ctx context.Context, token string) error

	// CallCounts records invocations per method name.
	CallCounts map[string]int

	// SavedAccessTokens and SavedRefreshTokens record every persisted token.
	SavedAccessTokens  []*storage.AccessToken
	SavedRefreshTokens []*storage.RefreshToken

	// RevokedRefreshTokens records every revoked token value in order.
	RevokedRefreshTokens []string
}

// NewBackend creates a scripted backend whose lookups all report not found.
func NewBackend() *Backend {
	return &Backend{CallCounts: make(map[string]int)}
}

func (b *Backend) count(method string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CallCounts[method]++
}

// Calls returns how many times the named method was invoked.
func (b *Backend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.CallCounts[method]
}

// GetClient implements storage.CoreBackend.
func (b *Backend) GetClient(ctx context.Context, clientID, clientSecret string) (*storage.Client, error) {
	b.count("GetClient")
	if b.GetClientFunc != nil {
		return b.GetClientFunc(ctx, clientID, clientSecret)
	}
	return nil, nil
}

// IsGrantTypeAllowed implements storage.CoreBackend.
func (b *Backend) IsGrantTypeAllowed(ctx context.Context, clientID, grantType string) (bool, error) {
	b.count("IsGrantTypeAllowed")
	if b.IsGrantTypeAllowedFunc != nil {
		return b.IsGrantTypeAllowedFunc(ctx, clientID, grantType)
	}
	return false, nil
}

// SaveAccessToken implements storage.CoreBackend.
func (b *Backend) SaveAccessToken(ctx context.Context, token *storage.AccessToken) error {
	b.count("SaveAccessToken")
	if b.SaveAccessTokenFunc != nil {
		return b.SaveAccessTokenFunc(ctx, token)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.SavedAccessTokens = append(b.SavedAccessTokens, token)
	return nil
}

// GetUser implements storage.PasswordBackend.
func (b *Backend) GetUser(ctx context.Context, username, password string) (*storage.User, error) {
	b.count("GetUser")
	if b.GetUserFunc != nil {
		return b.GetUserFunc(ctx, username, password)
	}
	return nil, nil
}

// GetUserFromClient implements storage.ClientCredentialsBackend.
func (b *Backend) GetUserFromClient(ctx context.Context, clientID, clientSecret string) (*storage.User, error) {
	b.count("GetUserFromClient")
	if b.GetUserFromClientFunc != nil {
		return b.GetUserFromClientFunc(ctx, clientID, clientSecret)
	}
	return nil, nil
}

// GetAuthCode implements storage.AuthCodeBackend.
func (b *Backend) GetAuthCode(ctx context.Context, code string) (*storage.AuthCode, error) {
	b.count("GetAuthCode")
	if b.GetAuthCodeFunc != nil {
		return b.GetAuthCodeFunc(ctx, code)
	}
	return nil, nil
}

// GetRefreshToken implements storage.RefreshTokenBackend.
func (b *Backend) GetRefreshToken(ctx context.Context, token string) (*storage.RefreshToken, error) {
	b.count("GetRefreshToken")
	if b.GetRefreshTokenFunc != nil {
		return b.GetRefreshTokenFunc(ctx, token)
	}
	return nil, nil
}

// SaveRefreshToken implements storage.RefreshTokenBackend.
func (b *Backend) SaveRefreshToken(ctx context.Context, token *storage.RefreshToken) error {
	b.count("SaveRefreshToken")
	if b.SaveRefreshTokenFunc != nil {
		return b.SaveRefreshTokenFunc(ctx, token)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.SavedRefreshTokens = append(b.SavedRefreshTokens, token)
	return nil
}

// RevokeRefreshToken implements storage.RefreshTokenBackend.
func (b *Backend) RevokeRefreshToken(ctx context.Context, token string) error {
	b.count("RevokeRefreshToken")
	if b.RevokeRefreshTokenFunc != nil {
		return b.RevokeRefreshTokenFunc(ctx, token)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.RevokedRefreshTokens = append(b.RevokedRefreshTokens, token)
	return nil
}

// TokenSource is a scripted security.TokenSource returning fixed values.
type TokenSource struct {
	mu sync.Mutex

	// AccessToken and RefreshToken are the values returned per kind.
	AccessToken  string
	RefreshToken string

	// GenerateTokenFunc overrides the scripted behavior entirely.
	GenerateTokenFunc func(ctx context.Context, kind security.TokenKind) (string, error)

	// CallCounts records invocations per token kind.
	CallCounts map[security.TokenKind]int
}

// NewTokenSource creates a scripted token source.
func NewTokenSource(accessToken, refreshToken string) *TokenSource {
	return &TokenSource{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		CallCounts:   make(map[security.TokenKind]int),
	}
}

// GenerateToken implements security.TokenSource.
func (s *TokenSource) GenerateToken(ctx context.Context, kind security.TokenKind) (string, error) {
	s.mu.Lock()
	s.CallCounts[kind]++
	s.mu.Unlock()

	if s.GenerateTokenFunc != nil {
		return s.GenerateTokenFunc(ctx, kind)
	}
	if kind == security.TokenKindRefresh {
		return s.RefreshToken, nil
	}
	return s.AccessToken, nil
}

// Calls returns how many times tokens of the given kind were generated.
func (s *TokenSource) Calls(kind security.TokenKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CallCounts[kind]
}
