package security

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// TokenKind distinguishes the two token strings the engine generates.
type TokenKind string

const (
	// TokenKindAccess marks access-token generation.
	TokenKindAccess TokenKind = "access"

	// TokenKindRefresh marks refresh-token generation.
	TokenKindRefresh TokenKind = "refresh"
)

// DefaultTokenBytes is the entropy of the default token source. Custom
// TokenSource implementations must meet or exceed it.
const DefaultTokenBytes = 32

// TokenSource produces opaque token strings. Implementations must be safe
// for concurrent use.
type TokenSource interface {
	GenerateToken(ctx context.Context, kind TokenKind) (string, error)
}

// RandomTokenSource generates tokens from a cryptographically secure random
// source, base64-encoded. It is stateless and safe to share.
type RandomTokenSource struct {
	size int
}

// NewRandomTokenSource returns the default token source: DefaultTokenBytes
// random bytes per token, base64-encoded.
func NewRandomTokenSource() *RandomTokenSource {
	return &RandomTokenSource{size: DefaultTokenBytes}
}

// GenerateToken implements TokenSource.
func (s *RandomTokenSource) GenerateToken(_ context.Context, _ TokenKind) (string, error) {
	b := make([]byte, s.size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
