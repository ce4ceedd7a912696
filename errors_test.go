package oauth

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestOAuthError_Error(t *testing.T) {
	err := NewOAuthError(ErrorCodeInvalidGrant, "User credentials are invalid.", http.StatusBadRequest)
	if got, want := err.Error(), "invalid_grant: User credentials are invalid."; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestOAuthError_UnwrapsThroughWrapping(t *testing.T) {
	inner := ErrInvalidClient("Invalid client credentials.")
	wrapped := fmt.Errorf("pipeline stage failed: %w", inner)

	var oerr *OAuthError
	if !errors.As(wrapped, &oerr) {
		t.Fatal("errors.As failed to recover *OAuthError")
	}
	if oerr.Code != ErrorCodeInvalidClient {
		t.Errorf("Code = %q, want %q", oerr.Code, ErrorCodeInvalidClient)
	}
}

func TestErrorConstructors_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        *OAuthError
		wantCode   string
		wantStatus int
	}{
		{"invalid request", ErrInvalidRequest("x"), ErrorCodeInvalidRequest, http.StatusBadRequest},
		{"invalid client", ErrInvalidClient("x"), ErrorCodeInvalidClient, http.StatusUnauthorized},
		{"invalid grant", ErrInvalidGrant("x"), ErrorCodeInvalidGrant, http.StatusBadRequest},
		{"unauthorized client", ErrUnauthorizedClient("x"), ErrorCodeUnauthorizedClient, http.StatusUnauthorized},
		{"access denied", ErrAccessDenied("x"), ErrorCodeAccessDenied, http.StatusUnauthorized},
		{"unsupported response type", ErrUnsupportedResponseType("x"), ErrorCodeUnsupportedResponseType, http.StatusUnsupportedMediaType},
		{"invalid scope", ErrInvalidScope("x"), ErrorCodeInvalidScope, http.StatusBadRequest},
		{"unsupported grant type", ErrUnsupportedGrantType("x"), ErrorCodeUnsupportedGrantType, http.StatusBadRequest},
		{"temporarily unavailable", ErrTemporarilyUnavailable("x"), ErrorCodeTemporarilyUnavailable, http.StatusServiceUnavailable},
		{"server error", ErrServerError("x"), ErrorCodeServerError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.wantCode)
			}
			if tt.err.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.wantStatus)
			}
			if tt.err.Description != "x" {
				t.Errorf("Description = %q, want %q", tt.err.Description, "x")
			}
		})
	}
}
