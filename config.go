package oauth

import (
	"log/slog"
	"time"

	"github.com/tokenforge/oauth2-engine/instrumentation"
	"github.com/tokenforge/oauth2-engine/security"
	"github.com/tokenforge/oauth2-engine/storage"
)

// Grant type identifiers. The set a Server supports is derived from which
// optional capability groups were wired at construction time.
const (
	GrantTypePassword          = "password"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	// DefaultAccessTokenLifetime is the default access-token lifetime.
	DefaultAccessTokenLifetime = time.Hour

	// DefaultRefreshTokenLifetime is the default refresh-token lifetime.
	DefaultRefreshTokenLifetime = 14 * 24 * time.Hour

	// DefaultAuthCodeLifetime is the default authorization-code lifetime.
	// The engine never mints codes itself; this is the policy value hosts
	// should apply when they do.
	DefaultAuthCodeLifetime = 30 * time.Second

	// DefaultClientIDPattern is the default client-id validation pattern.
	DefaultClientIDPattern = `^[A-Za-z0-9_-]{3,40}$`
)

// Config holds the token policy and the backend capability groups wired into
// a Server. It is consumed once by New; the resulting Server is immutable and
// safe to share across concurrent requests.
type Config struct {
	// Core is the required capability group: client lookup, grant-type
	// authorization, and access-token persistence.
	Core storage.CoreBackend

	// Optional capability groups. A nil group disables its grant type;
	// requests naming a disabled grant type are rejected before any
	// backend I/O.
	Password          storage.PasswordBackend
	ClientCredentials storage.ClientCredentialsBackend
	AuthCode          storage.AuthCodeBackend
	RefreshToken      storage.RefreshTokenBackend

	// AccessTokenLifetime is how long issued access tokens are valid.
	// Zero means DefaultAccessTokenLifetime; see DisableAccessTokenExpiry
	// for non-expiring tokens.
	AccessTokenLifetime time.Duration

	// RefreshTokenLifetime is how long issued refresh tokens are valid.
	// Zero means DefaultRefreshTokenLifetime; see DisableRefreshTokenExpiry.
	RefreshTokenLifetime time.Duration

	// AuthCodeLifetime is the authorization-code lifetime policy value.
	// Zero means DefaultAuthCodeLifetime.
	AuthCodeLifetime time.Duration

	// DisableAccessTokenExpiry issues access tokens without an expiry.
	// The response then carries no expires_in field and SaveAccessToken
	// receives a zero ExpiresAt.
	DisableAccessTokenExpiry bool

	// DisableRefreshTokenExpiry issues refresh tokens without an expiry.
	DisableRefreshTokenExpiry bool

	// ClientIDPattern validates extracted client ids. Empty means
	// DefaultClientIDPattern. Must compile as a Go regular expression.
	ClientIDPattern string

	// TokenSource overrides token-string generation. Nil means the default
	// secure-random source; overrides must meet or exceed its entropy.
	TokenSource security.TokenSource

	// Clock overrides the engine's notion of now for expiry checks.
	// Nil means the system clock.
	Clock security.Clock

	// Logger for structured logging (optional, uses slog.Default if not provided).
	// Unclassified pipeline failures are logged here and never leaked into
	// the wire response.
	Logger *slog.Logger

	// Instrumentation provides OpenTelemetry metrics and tracing.
	// Nil means no-op instrumentation.
	Instrumentation *instrumentation.Instrumentation
}

// supportedGrantTypes derives the grant-type set from the wired capability
// groups. Keeping this a pure function of the config removes any chance of
// the set and the groups desynchronizing.
func (c *Config) supportedGrantTypes() map[string]bool {
	supported := make(map[string]bool, 4)
	if c.Password != nil {
		supported[GrantTypePassword] = true
	}
	if c.ClientCredentials != nil {
		supported[GrantTypeClientCredentials] = true
	}
	if c.AuthCode != nil {
		supported[GrantTypeAuthorizationCode] = true
	}
	if c.RefreshToken != nil {
		supported[GrantTypeRefreshToken] = true
	}
	return supported
}
