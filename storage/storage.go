package storage

import "context"

// Lookup methods across all capability groups share one convention: absence
// is reported as (nil, nil). A non-nil error always means the backend itself
// malfunctioned and is surfaced to the caller as server_error, never as a
// grant rejection.

// CoreBackend is the capability group every deployment must supply.
// All methods accept context.Context for tracing and cancellation; backends
// must tolerate concurrent invocation.
type CoreBackend interface {
	// GetClient looks up a client by its id and secret. The backend owns the
	// credential comparison; there are no partial-match semantics.
	GetClient(ctx context.Context, clientID, clientSecret string) (*Client, error)

	// IsGrantTypeAllowed reports whether the client may use the grant type.
	IsGrantTypeAllowed(ctx context.Context, clientID, grantType string) (bool, error)

	// SaveAccessToken persists a freshly issued access token.
	SaveAccessToken(ctx context.Context, token *AccessToken) error
}

// PasswordBackend enables the password grant type.
type PasswordBackend interface {
	// GetUser looks up a user by credentials.
	GetUser(ctx context.Context, username, password string) (*User, error)
}

// ClientCredentialsBackend enables the client_credentials grant type.
type ClientCredentialsBackend interface {
	// GetUserFromClient resolves the user a client acts on behalf of.
	GetUserFromClient(ctx context.Context, clientID, clientSecret string) (*User, error)
}

// AuthCodeBackend enables the authorization_code grant type.
// The engine does not consume codes itself; single-use enforcement, if
// required, belongs to the backend.
type AuthCodeBackend interface {
	// GetAuthCode looks up an authorization code by its value.
	GetAuthCode(ctx context.Context, code string) (*AuthCode, error)
}

// RefreshTokenBackend enables the refresh_token grant type. All three
// methods are required together.
type RefreshTokenBackend interface {
	// GetRefreshToken looks up a refresh token by its value.
	GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error)

	// SaveRefreshToken persists a freshly issued refresh token.
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error

	// RevokeRefreshToken invalidates a refresh token. The engine calls this
	// unconditionally for every matching token it looks up.
	RevokeRefreshToken(ctx context.Context, token string) error
}
