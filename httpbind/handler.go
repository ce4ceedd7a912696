// Package httpbind adapts net/http to the token-issuance engine. It is the
// only transport binding shipped with the module; the engine itself never
// sees an *http.Request.
package httpbind

import (
	"io"
	"log/slog"
	"net/http"

	oauth "github.com/tokenforge/oauth2-engine"
)

// maxBodyBytes bounds the request body read. Token-endpoint forms are tiny;
// anything larger is hostile.
const maxBodyBytes = 64 * 1024

// Handler is an http.Handler serving the token endpoint.
type Handler struct {
	srv    *oauth.Server
	logger *slog.Logger
}

// NewHandler creates a token-endpoint handler for the given server.
func NewHandler(srv *oauth.Server, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{srv: srv, logger: logger}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Warn("Failed to read token request body", "error", err)
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	resp := h.srv.Grant(r.Context(), oauth.NewRequest(r.Method, r.Header, string(body)))

	for k, v := range resp.Header {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.WriteString(w, resp.Body); err != nil {
		h.logger.Warn("Failed to write token response", "error", err)
	}
}
