package storage

import "time"

// Client is a registered application that authenticates against the token
// endpoint with HTTP Basic credentials. Beyond the identity check the engine
// treats it as opaque.
type Client struct {
	ID     string
	Secret string
}

// User is the resource owner an issued access token represents.
type User struct {
	ID       string
	Username string
	Password string
}

// AuthCode is a single-use authorization-code grant credential.
// ExpiresAt is always set; there is no such thing as a non-expiring code.
type AuthCode struct {
	ClientID  string
	UserID    string
	ExpiresAt time.Time
}

// Expired reports whether the code is expired at the given instant.
// A code expiring exactly at now is considered expired.
func (c *AuthCode) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// AccessToken is a freshly issued bearer token to be persisted by the backend.
// A zero ExpiresAt means the token never expires.
type AccessToken struct {
	Token     string
	ClientID  string
	UserID    string
	ExpiresAt time.Time
}

// Expires reports whether the token carries an expiry at all.
func (t *AccessToken) Expires() bool {
	return !t.ExpiresAt.IsZero()
}

// RefreshToken is a single-use credential for the refresh_token grant.
// A zero ExpiresAt means the token never expires. The backend must honor
// RevokeRefreshToken: the engine revokes every matching token it looks up,
// valid or expired.
type RefreshToken struct {
	Token     string
	ClientID  string
	UserID    string
	ExpiresAt time.Time
}

// Expired reports whether the token is expired at the given instant.
// Tokens without an expiry never expire.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !t.ExpiresAt.After(now)
}
