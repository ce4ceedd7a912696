package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/tokenforge/oauth2-engine/storage"
)

// newTestStore connects to the Redis instance named by TEST_REDIS_ADDR.
// Tests are skipped when the variable is unset so the suite stays green
// without external services.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping Redis integration tests")
	}

	store, err := New(context.Background(), Config{
		Address:   addr,
		KeyPrefix: "oauth2test:",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNew_MissingAddress(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Error("New() with empty address succeeded, want error")
	}
}

func TestStore_ClientRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.RegisterClient(ctx, "c1", "secret1", "password"); err != nil {
		t.Fatalf("RegisterClient() error = %v", err)
	}

	client, err := store.GetClient(ctx, "c1", "secret1")
	if err != nil {
		t.Fatalf("GetClient() error = %v", err)
	}
	if client == nil || client.ID != "c1" {
		t.Fatalf("GetClient() = %+v, want client c1", client)
	}

	client, err = store.GetClient(ctx, "c1", "wrong")
	if err != nil {
		t.Fatalf("GetClient() error = %v", err)
	}
	if client != nil {
		t.Error("GetClient() with wrong secret found a client")
	}

	allowed, err := store.IsGrantTypeAllowed(ctx, "c1", "password")
	if err != nil {
		t.Fatalf("IsGrantTypeAllowed() error = %v", err)
	}
	if !allowed {
		t.Error("IsGrantTypeAllowed() = false for registered grant, want true")
	}

	allowed, err = store.IsGrantTypeAllowed(ctx, "c1", "refresh_token")
	if err != nil {
		t.Fatalf("IsGrantTypeAllowed() error = %v", err)
	}
	if allowed {
		t.Error("IsGrantTypeAllowed() = true for unregistered grant, want false")
	}
}

func TestStore_UserRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	userID, err := store.RegisterUser(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("RegisterUser() error = %v", err)
	}

	user, err := store.GetUser(ctx, "u1", "p1")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if user == nil || user.ID != userID {
		t.Fatalf("GetUser() = %+v, want user %s", user, userID)
	}

	user, err = store.GetUser(ctx, "u1", "wrong")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if user != nil {
		t.Error("GetUser() with wrong password found a user")
	}
}

func TestStore_RefreshTokenRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	token := &storage.RefreshToken{
		Token:     "rt-redis-1",
		ClientID:  "c1",
		UserID:    "u1",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := store.SaveRefreshToken(ctx, token); err != nil {
		t.Fatalf("SaveRefreshToken() error = %v", err)
	}

	got, err := store.GetRefreshToken(ctx, "rt-redis-1")
	if err != nil {
		t.Fatalf("GetRefreshToken() error = %v", err)
	}
	if got == nil || got.UserID != "u1" || got.ClientID != "c1" {
		t.Fatalf("GetRefreshToken() = %+v, want client c1 user u1", got)
	}
	if got.ExpiresAt.IsZero() {
		t.Error("GetRefreshToken() lost the expiry")
	}

	if err := store.RevokeRefreshToken(ctx, "rt-redis-1"); err != nil {
		t.Fatalf("RevokeRefreshToken() error = %v", err)
	}
	got, err = store.GetRefreshToken(ctx, "rt-redis-1")
	if err != nil {
		t.Fatalf("GetRefreshToken() error = %v", err)
	}
	if got != nil {
		t.Error("GetRefreshToken() after revoke still found the token")
	}
}

func TestStore_AuthCodeRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	code, err := store.MintAuthCode(ctx, "c1", "u1", 30*time.Second)
	if err != nil {
		t.Fatalf("MintAuthCode() error = %v", err)
	}

	record, err := store.GetAuthCode(ctx, code)
	if err != nil {
		t.Fatalf("GetAuthCode() error = %v", err)
	}
	if record == nil || record.ClientID != "c1" || record.UserID != "u1" {
		t.Fatalf("GetAuthCode() = %+v, want client c1 user u1", record)
	}

	if err := store.DeleteAuthCode(ctx, code); err != nil {
		t.Fatalf("DeleteAuthCode() error = %v", err)
	}
	record, err = store.GetAuthCode(ctx, code)
	if err != nil {
		t.Fatalf("GetAuthCode() error = %v", err)
	}
	if record != nil {
		t.Error("GetAuthCode() after delete still found the code")
	}
}

func TestValidateToken(t *testing.T) {
	if err := validateToken(""); err == nil {
		t.Error("validateToken(\"\") = nil, want error")
	}
	long := make([]byte, MaxTokenLength+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := validateToken(string(long)); err == nil {
		t.Error("validateToken(oversized) = nil, want error")
	}
	if err := validateToken("ok"); err != nil {
		t.Errorf("validateToken(\"ok\") = %v, want nil", err)
	}
}
