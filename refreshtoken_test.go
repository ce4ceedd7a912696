package oauth

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/tokenforge/oauth2-engine/storage"
)

func refreshRequest(token string) *Request {
	fields := url.Values{}
	if token != "" {
		fields.Set("refresh_token", token)
	}
	return tokenRequest(GrantTypeRefreshToken, fields)
}

func TestRefreshTokenGrant_Success(t *testing.T) {
	srv, fixture := newTestServer(t)
	fixture.backend.GetRefreshTokenFunc = func(_ context.Context, token string) (*storage.RefreshToken, error) {
		if token == "old-refresh" {
			return &storage.RefreshToken{
				Token:     token,
				ClientID:  testClientID,
				UserID:    testUserID,
				ExpiresAt: testNow.Add(time.Hour),
			}, nil
		}
		return nil, nil
	}

	resp := srv.Grant(context.Background(), refreshRequest("old-refresh"))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want 200 (body %q)", resp.StatusCode, resp.Body)
	}

	// The presented token is consumed and a fresh one issued.
	if got := fixture.backend.RevokedRefreshTokens; len(got) != 1 || got[0] != "old-refresh" {
		t.Errorf("RevokedRefreshTokens = %v, want [old-refresh]", got)
	}
	if len(fixture.backend.SavedRefreshTokens) != 1 {
		t.Fatalf("saved %d refresh tokens, want 1", len(fixture.backend.SavedRefreshTokens))
	}
	if got := fixture.backend.SavedRefreshTokens[0].Token; got != testRefreshToken {
		t.Errorf("new refresh token = %q, want %q", got, testRefreshToken)
	}
	if got := fixture.backend.SavedAccessTokens[0].UserID; got != testUserID {
		t.Errorf("access token UserID = %q, want %q", got, testUserID)
	}
}

func TestRefreshTokenGrant_MissingToken(t *testing.T) {
	srv, fixture := newTestServer(t)

	resp := srv.Grant(context.Background(), refreshRequest(""))
	assertErrorResponse(t, resp, http.StatusBadRequest, ErrorCodeInvalidRequest)
	if n := fixture.backend.Calls("GetRefreshToken"); n != 0 {
		t.Errorf("GetRefreshToken called %d times without a token parameter", n)
	}
}

func TestRefreshTokenGrant_UnknownToken(t *testing.T) {
	srv, fixture := newTestServer(t)

	resp := srv.Grant(context.Background(), refreshRequest("no-such-token"))
	assertErrorResponse(t, resp, http.StatusBadRequest, ErrorCodeInvalidGrant)
	if n := fixture.backend.Calls("RevokeRefreshToken"); n != 0 {
		t.Errorf("RevokeRefreshToken called %d times for an unknown token", n)
	}
}

func TestRefreshTokenGrant_ClientMismatchDoesNotRevoke(t *testing.T) {
	srv, fixture := newTestServer(t)
	fixture.backend.GetRefreshTokenFunc = func(_ context.Context, token string) (*storage.RefreshToken, error) {
		return &storage.RefreshToken{
			Token:     token,
			ClientID:  "other-client",
			UserID:    testUserID,
			ExpiresAt: testNow.Add(time.Hour),
		}, nil
	}

	resp := srv.Grant(context.Background(), refreshRequest("stolen-token"))
	assertErrorResponse(t, resp, http.StatusBadRequest, ErrorCodeInvalidGrant)

	// A token owned by a different client must stay untouched.
	if n := fixture.backend.Calls("RevokeRefreshToken"); n != 0 {
		t.Errorf("RevokeRefreshToken called %d times for a foreign token", n)
	}
}

func TestRefreshTokenGrant_ExpiredTokenIsRevokedBeforeFailing(t *testing.T) {
	srv, fixture := newTestServer(t)
	fixture.backend.GetRefreshTokenFunc = func(_ context.Context, token string) (*storage.RefreshToken, error) {
		return &storage.RefreshToken{
			Token:     token,
			ClientID:  testClientID,
			UserID:    testUserID,
			ExpiresAt: testNow.Add(-time.Minute),
		}, nil
	}

	resp := srv.Grant(context.Background(), refreshRequest("expired-token"))
	assertErrorResponse(t, resp, http.StatusBadRequest, ErrorCodeInvalidGrant)

	if got := fixture.backend.RevokedRefreshTokens; len(got) != 1 || got[0] != "expired-token" {
		t.Errorf("RevokedRefreshTokens = %v, want [expired-token]", got)
	}
	if len(fixture.backend.SavedRefreshTokens) != 0 {
		t.Errorf("saved %d refresh tokens after expired-token failure", len(fixture.backend.SavedRefreshTokens))
	}
}

func TestRefreshTokenGrant_NonExpiringToken(t *testing.T) {
	srv, fixture := newTestServer(t)
	fixture.backend.GetRefreshTokenFunc = func(_ context.Context, token string) (*storage.RefreshToken, error) {
		// Zero ExpiresAt marks a token issued without an expiry.
		return &storage.RefreshToken{Token: token, ClientID: testClientID, UserID: testUserID}, nil
	}

	fixture.clock.Advance(100 * 365 * 24 * time.Hour)

	resp := srv.Grant(context.Background(), refreshRequest("eternal-token"))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200 (body %q)", resp.StatusCode, resp.Body)
	}
}

func TestRefreshTokenGrant_RevocationFailureIsServerError(t *testing.T) {
	srv, fixture := newTestServer(t)
	fixture.backend.GetRefreshTokenFunc = func(_ context.Context, token string) (*storage.RefreshToken, error) {
		return &storage.RefreshToken{Token: token, ClientID: testClientID, UserID: testUserID, ExpiresAt: testNow.Add(time.Hour)}, nil
	}
	fixture.backend.RevokeRefreshTokenFunc = func(_ context.Context, _ string) error {
		return context.DeadlineExceeded
	}

	resp := srv.Grant(context.Background(), refreshRequest("old-refresh"))
	assertErrorResponse(t, resp, http.StatusInternalServerError, ErrorCodeServerError)
}
