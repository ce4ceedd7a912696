package oauth

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tokenforge/oauth2-engine/security"
	"github.com/tokenforge/oauth2-engine/storage"
)

const (
	methodPost          = "POST"
	mediaFormURLEncoded = "application/x-www-form-urlencoded"
	keyGrantType        = "grant_type"
)

// grant holds the request-scoped mutable state for one token-endpoint
// request. It is created per request and discarded once the response is
// produced; nothing here is shared.
type grant struct {
	srv *Server
	req *Request

	form url.Values

	grantType    string
	clientID     string
	clientSecret string

	userID string

	accessToken  string
	refreshToken string
}

// run executes the pipeline stages in order, stopping at the first failure.
func (g *grant) run(ctx context.Context) error {
	if err := g.extractCredentials(); err != nil {
		return err
	}
	if err := g.checkClient(ctx); err != nil {
		return err
	}
	if err := g.checkGrantTypeAllowed(ctx); err != nil {
		return err
	}
	if err := g.dispatch(ctx); err != nil {
		return err
	}
	return g.issueTokens(ctx)
}

// extractCredentials validates the request envelope and pulls out the grant
// type and the Basic client credentials. Pure validation, no backend I/O.
func (g *grant) extractCredentials() error {
	// Only POST via application/x-www-form-urlencoded is acceptable.
	contentType := g.req.Header.Get("Content-Type")
	if g.req.Method != methodPost || contentType != mediaFormURLEncoded {
		return ErrInvalidRequest("Method must be POST with application/x-www-form-urlencoded encoding.")
	}

	form := g.req.Form
	if form == nil {
		parsed, err := url.ParseQuery(g.req.Body)
		if err != nil {
			return ErrInvalidRequest("Request body is not valid url-encoded form data.")
		}
		form = parsed
	}
	g.form = form

	g.grantType = strings.ToLower(strings.TrimSpace(form.Get(keyGrantType)))
	if !g.srv.supported[g.grantType] {
		return ErrInvalidRequest("Invalid or missing grant_type parameter.")
	}

	clientID, clientSecret, ok := basicAuthCredentials(g.req.Header.Get("Authorization"))
	if !ok {
		return ErrInvalidClient("Invalid or missing client credentials.")
	}
	if strings.TrimSpace(clientID) == "" || !g.srv.clientIDPattern.MatchString(clientID) {
		return ErrInvalidClient("Missing or malformed client_id.")
	}
	if strings.TrimSpace(clientSecret) == "" {
		return ErrInvalidClient("Missing client_secret.")
	}
	g.clientID = clientID
	g.clientSecret = clientSecret

	return nil
}

// basicAuthCredentials decodes an Authorization header of the form
// "Basic <base64(id:secret)>". The decoded value must contain exactly one
// colon; anything else is rejected.
func basicAuthCredentials(header string) (clientID, clientSecret string, ok bool) {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, "Basic ") {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(strings.TrimPrefix(header, "Basic ")))
	if err != nil {
		return "", "", false
	}
	parts := strings.Split(string(decoded), ":")
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// checkClient authenticates the client against the backend. One round-trip,
// no engine state beyond confirming the client exists.
func (g *grant) checkClient(ctx context.Context) error {
	client, err := g.srv.core.GetClient(ctx, g.clientID, g.clientSecret)
	if err != nil {
		return fmt.Errorf("client lookup failed: %w", err)
	}
	if client == nil {
		return ErrInvalidClient("Invalid client credentials.")
	}
	return nil
}

// checkGrantTypeAllowed verifies the authenticated client may use the
// requested grant type. Runs after client authentication, before any
// grant-specific validation.
func (g *grant) checkGrantTypeAllowed(ctx context.Context) error {
	allowed, err := g.srv.core.IsGrantTypeAllowed(ctx, g.clientID, g.grantType)
	if err != nil {
		return fmt.Errorf("grant type authorization failed: %w", err)
	}
	if !allowed {
		return ErrInvalidClient("The grant type is unauthorized for this client.")
	}
	return nil
}

// dispatch runs exactly one grant-type handler to resolve the principal the
// access token will represent.
func (g *grant) dispatch(ctx context.Context) error {
	switch g.grantType {
	case GrantTypePassword:
		return g.usePasswordGrant(ctx)
	case GrantTypeClientCredentials:
		return g.useClientCredentialsGrant(ctx)
	case GrantTypeAuthorizationCode:
		return g.useAuthCodeGrant(ctx)
	case GrantTypeRefreshToken:
		return g.useRefreshTokenGrant(ctx)
	}
	// Unreachable when extractCredentials did its job.
	return ErrInvalidRequest("Invalid grant_type parameter.")
}

func (g *grant) usePasswordGrant(ctx context.Context) error {
	username := g.form.Get("username")
	password := g.form.Get("password")
	if username == "" || password == "" {
		return ErrInvalidClient("Missing parameters: 'username' and 'password' are required.")
	}

	user, err := g.srv.password.GetUser(ctx, username, password)
	if err != nil {
		return fmt.Errorf("user lookup failed: %w", err)
	}
	if user == nil {
		return ErrInvalidGrant("User credentials are invalid.")
	}
	g.userID = user.ID
	return nil
}

func (g *grant) useClientCredentialsGrant(ctx context.Context) error {
	user, err := g.srv.clientCredentials.GetUserFromClient(ctx, g.clientID, g.clientSecret)
	if err != nil {
		return fmt.Errorf("client user lookup failed: %w", err)
	}
	if user == nil {
		return ErrInvalidGrant("Client credentials are invalid.")
	}
	g.userID = user.ID
	return nil
}

func (g *grant) useAuthCodeGrant(ctx context.Context) error {
	value := g.form.Get("code")
	if value == "" {
		return ErrInvalidRequest("Missing value for 'code'.")
	}

	code, err := g.srv.authCode.GetAuthCode(ctx, value)
	if err != nil {
		return fmt.Errorf("auth code lookup failed: %w", err)
	}
	if code == nil || code.ClientID != g.clientID {
		return ErrInvalidGrant("Invalid authorization code.")
	}
	if code.Expired(g.srv.clock.Now()) {
		return ErrInvalidGrant("Authorization code has expired.")
	}
	g.userID = code.UserID
	return nil
}

// useRefreshTokenGrant enforces single-use semantics: any token found
// matching the client is revoked, including expired ones. Revocation happens
// before the expiry failure is raised so an expired token is never left
// valid for retry.
func (g *grant) useRefreshTokenGrant(ctx context.Context) error {
	value := g.form.Get("refresh_token")
	if value == "" {
		return ErrInvalidRequest("Missing value for 'refresh_token'.")
	}

	token, err := g.srv.refreshToken.GetRefreshToken(ctx, value)
	if err != nil {
		return fmt.Errorf("refresh token lookup failed: %w", err)
	}
	if token == nil || token.ClientID != g.clientID {
		return ErrInvalidGrant("Invalid refresh token.")
	}

	if err := g.srv.refreshToken.RevokeRefreshToken(ctx, value); err != nil {
		return fmt.Errorf("refresh token revocation failed: %w", err)
	}
	if token.Expired(g.srv.clock.Now()) {
		return ErrInvalidGrant("Refresh token has expired.")
	}

	g.userID = token.UserID
	return nil
}

// issueTokens generates and persists the access token and, when a refresh
// backend is wired, a refresh token. The two sub-flows are independent and
// run concurrently; both must complete before response synthesis.
func (g *grant) issueTokens(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error { return g.issueAccessToken(ctx) })

	if g.srv.refreshToken != nil {
		eg.Go(func() error { return g.issueRefreshToken(ctx) })
	}

	if err := eg.Wait(); err != nil {
		return err
	}

	g.srv.metrics.RecordTokenIssued(ctx, g.grantType, g.refreshToken != "")
	return nil
}

func (g *grant) issueAccessToken(ctx context.Context) error {
	token, err := g.srv.tokenSource.GenerateToken(ctx, security.TokenKindAccess)
	if err != nil {
		return fmt.Errorf("access token generation failed: %w", err)
	}
	if token == "" {
		return fmt.Errorf("token source returned an empty access token")
	}
	g.accessToken = token

	record := &storage.AccessToken{
		Token:     token,
		ClientID:  g.clientID,
		UserID:    g.userID,
		ExpiresAt: g.expiry(g.srv.accessTokenLifetime),
	}
	if err := g.srv.core.SaveAccessToken(ctx, record); err != nil {
		return fmt.Errorf("access token persistence failed: %w", err)
	}
	return nil
}

func (g *grant) issueRefreshToken(ctx context.Context) error {
	token, err := g.srv.tokenSource.GenerateToken(ctx, security.TokenKindRefresh)
	if err != nil {
		return fmt.Errorf("refresh token generation failed: %w", err)
	}
	if token == "" {
		return fmt.Errorf("token source returned an empty refresh token")
	}
	g.refreshToken = token

	record := &storage.RefreshToken{
		Token:     token,
		ClientID:  g.clientID,
		UserID:    g.userID,
		ExpiresAt: g.expiry(g.srv.refreshTokenLifetime),
	}
	if err := g.srv.refreshToken.SaveRefreshToken(ctx, record); err != nil {
		return fmt.Errorf("refresh token persistence failed: %w", err)
	}
	return nil
}

// expiry computes now+lifetime, or the zero time when no lifetime is
// configured.
func (g *grant) expiry(lifetime time.Duration) time.Time {
	if lifetime == 0 {
		return time.Time{}
	}
	return g.srv.clock.Now().Add(lifetime)
}
