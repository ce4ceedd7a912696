package oauth

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/tokenforge/oauth2-engine/security"
	"github.com/tokenforge/oauth2-engine/storage"
)

func passwordRequest(username, password string) *Request {
	fields := url.Values{}
	if username != "" {
		fields.Set("username", username)
	}
	if password != "" {
		fields.Set("password", password)
	}
	return tokenRequest(GrantTypePassword, fields)
}

func TestPasswordGrant_Success(t *testing.T) {
	srv, fixture := newTestServer(t)
	fixture.backend.GetUserFunc = func(_ context.Context, username, password string) (*storage.User, error) {
		if username == "u1" && password == "p1" {
			return &storage.User{ID: testUserID, Username: username}, nil
		}
		return nil, nil
	}

	resp := srv.Grant(context.Background(), passwordRequest("u1", "p1"))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want 200 (body %q)", resp.StatusCode, resp.Body)
	}
	want := `{"access_token":"ACCESS1","token_type":"bearer","expires_in":3600,"refresh_token":"REFRESH1"}`
	if resp.Body != want {
		t.Errorf("Body = %q, want %q", resp.Body, want)
	}
	if got := resp.Header["Content-Type"]; got != "application/json;charset=UTF-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := resp.Header["Cache-Control"]; got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
	if got := resp.Header["Pragma"]; got != "no-cache" {
		t.Errorf("Pragma = %q", got)
	}
}

func TestPasswordGrant_PersistsTokensForUser(t *testing.T) {
	srv, fixture := newTestServer(t)
	fixture.backend.GetUserFunc = func(_ context.Context, _, _ string) (*storage.User, error) {
		return &storage.User{ID: testUserID}, nil
	}

	resp := srv.Grant(context.Background(), passwordRequest("u1", "p1"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want 200 (body %q)", resp.StatusCode, resp.Body)
	}

	if len(fixture.backend.SavedAccessTokens) != 1 {
		t.Fatalf("saved %d access tokens, want 1", len(fixture.backend.SavedAccessTokens))
	}
	at := fixture.backend.SavedAccessTokens[0]
	if at.Token != testAccessToken || at.ClientID != testClientID || at.UserID != testUserID {
		t.Errorf("saved access token = %+v", at)
	}
	if want := testNow.Add(DefaultAccessTokenLifetime); !at.ExpiresAt.Equal(want) {
		t.Errorf("access token ExpiresAt = %v, want %v", at.ExpiresAt, want)
	}

	if len(fixture.backend.SavedRefreshTokens) != 1 {
		t.Fatalf("saved %d refresh tokens, want 1", len(fixture.backend.SavedRefreshTokens))
	}
	rt := fixture.backend.SavedRefreshTokens[0]
	if rt.Token != testRefreshToken || rt.ClientID != testClientID || rt.UserID != testUserID {
		t.Errorf("saved refresh token = %+v", rt)
	}
	if want := testNow.Add(DefaultRefreshTokenLifetime); !rt.ExpiresAt.Equal(want) {
		t.Errorf("refresh token ExpiresAt = %v, want %v", rt.ExpiresAt, want)
	}
}

func TestPasswordGrant_MissingParameters(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"no username", "", "p1"},
		{"no password", "u1", ""},
		{"neither", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, fixture := newTestServer(t)

			resp := srv.Grant(context.Background(), passwordRequest(tt.username, tt.password))
			assertErrorResponse(t, resp, http.StatusUnauthorized, ErrorCodeInvalidClient)
			if n := fixture.backend.Calls("GetUser"); n != 0 {
				t.Errorf("GetUser called %d times with incomplete parameters", n)
			}
		})
	}
}

func TestPasswordGrant_UnknownUser(t *testing.T) {
	srv, fixture := newTestServer(t)

	resp := srv.Grant(context.Background(), passwordRequest("u1", "wrong"))
	assertErrorResponse(t, resp, http.StatusBadRequest, ErrorCodeInvalidGrant)

	if n := fixture.tokens.Calls(security.TokenKindAccess); n != 0 {
		t.Errorf("access token generated %d times after failed user lookup", n)
	}
}

func TestPasswordGrant_NoRefreshBackendOmitsRefreshToken(t *testing.T) {
	srv, fixture := newTestServer(t, func(c *Config) {
		c.RefreshToken = nil
	})
	fixture.backend.GetUserFunc = func(_ context.Context, _, _ string) (*storage.User, error) {
		return &storage.User{ID: testUserID}, nil
	}

	resp := srv.Grant(context.Background(), passwordRequest("u1", "p1"))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want 200 (body %q)", resp.StatusCode, resp.Body)
	}
	want := `{"access_token":"ACCESS1","token_type":"bearer","expires_in":3600}`
	if resp.Body != want {
		t.Errorf("Body = %q, want %q", resp.Body, want)
	}
	if n := fixture.tokens.Calls(security.TokenKindRefresh); n != 0 {
		t.Errorf("refresh token generated %d times without a refresh backend", n)
	}
}

func TestPasswordGrant_NonExpiringAccessToken(t *testing.T) {
	srv, fixture := newTestServer(t, func(c *Config) {
		c.DisableAccessTokenExpiry = true
	})
	fixture.backend.GetUserFunc = func(_ context.Context, _, _ string) (*storage.User, error) {
		return &storage.User{ID: testUserID}, nil
	}

	resp := srv.Grant(context.Background(), passwordRequest("u1", "p1"))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("StatusCode = %d, want 200 (body %q)", resp.StatusCode, resp.Body)
	}
	want := `{"access_token":"ACCESS1","token_type":"bearer","refresh_token":"REFRESH1"}`
	if resp.Body != want {
		t.Errorf("Body = %q, want %q", resp.Body, want)
	}
	if !fixture.backend.SavedAccessTokens[0].ExpiresAt.IsZero() {
		t.Errorf("ExpiresAt = %v, want zero", fixture.backend.SavedAccessTokens[0].ExpiresAt)
	}
}
