// Package oauth is an embeddable OAuth2 token-issuance engine. Given an
// HTTP-shaped request to a token endpoint it authenticates the requesting
// client, authorizes the requested grant type, validates the grant-specific
// credentials, issues an access token (and optionally a refresh token), and
// returns a protocol-compliant success or error response.
//
// The engine owns no transport and no persistence. Thin network adapters
// (see the httpbind package) convert their request representation into a
// Request record and write the Response record back; all lookups and writes
// are delegated to backend capability groups defined in the storage package.
// Which grant types a Server supports is derived from which optional groups
// were wired into its Config:
//
//	srv, err := oauth.New(&oauth.Config{
//		Core:     backend,
//		Password: backend, // enables grant_type=password
//	})
//
// Four grant types are available: password, client_credentials,
// authorization_code, and refresh_token. Refresh tokens are single use: the
// engine revokes every matching token it looks up, expired or not, before
// deciding the grant's outcome.
package oauth
