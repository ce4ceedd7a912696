package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/tokenforge/oauth2-engine/instrumentation"
	"github.com/tokenforge/oauth2-engine/security"
	"github.com/tokenforge/oauth2-engine/storage"
)

// Server is the token-endpoint entry point. It validates and authorizes an
// inbound Request, drives the grant pipeline to completion, and converts any
// failure into a protocol-compliant error Response.
//
// A Server is immutable after New and safe for concurrent use; every request
// gets its own pipeline state.
type Server struct {
	core              storage.CoreBackend
	password          storage.PasswordBackend
	clientCredentials storage.ClientCredentialsBackend
	authCode          storage.AuthCodeBackend
	refreshToken      storage.RefreshTokenBackend

	tokenSource security.TokenSource
	clock       security.Clock

	accessTokenLifetime  time.Duration // zero means issued tokens never expire
	refreshTokenLifetime time.Duration
	authCodeLifetime     time.Duration

	clientIDPattern *regexp.Regexp
	supported       map[string]bool

	logger  *slog.Logger
	metrics *instrumentation.Metrics
	inst    *instrumentation.Instrumentation
}

// New creates a Server from the given configuration, applying documented
// defaults for everything optional.
func New(config *Config) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.Core == nil {
		return nil, fmt.Errorf("core backend is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	supported := config.supportedGrantTypes()
	if len(supported) == 0 {
		logger.Warn("No grant-type capability groups wired; every token request will be rejected")
	}

	pattern := config.ClientIDPattern
	if pattern == "" {
		pattern = DefaultClientIDPattern
	}
	clientIDPattern, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid client id pattern %q: %w", pattern, err)
	}

	accessTokenLifetime := config.AccessTokenLifetime
	if accessTokenLifetime == 0 {
		accessTokenLifetime = DefaultAccessTokenLifetime
	}
	if config.DisableAccessTokenExpiry {
		accessTokenLifetime = 0
	}

	refreshTokenLifetime := config.RefreshTokenLifetime
	if refreshTokenLifetime == 0 {
		refreshTokenLifetime = DefaultRefreshTokenLifetime
	}
	if config.DisableRefreshTokenExpiry {
		refreshTokenLifetime = 0
	}

	authCodeLifetime := config.AuthCodeLifetime
	if authCodeLifetime == 0 {
		authCodeLifetime = DefaultAuthCodeLifetime
	}

	tokenSource := config.TokenSource
	if tokenSource == nil {
		tokenSource = security.NewRandomTokenSource()
	}

	clock := config.Clock
	if clock == nil {
		clock = security.SystemClock()
	}

	inst := config.Instrumentation
	if inst == nil {
		inst = instrumentation.NewNoop()
	}

	return &Server{
		core:                 config.Core,
		password:             config.Password,
		clientCredentials:    config.ClientCredentials,
		authCode:             config.AuthCode,
		refreshToken:         config.RefreshToken,
		tokenSource:          tokenSource,
		clock:                clock,
		accessTokenLifetime:  accessTokenLifetime,
		refreshTokenLifetime: refreshTokenLifetime,
		authCodeLifetime:     authCodeLifetime,
		clientIDPattern:      clientIDPattern,
		supported:            supported,
		logger:               logger,
		metrics:              inst.Metrics(),
		inst:                 inst,
	}, nil
}

// SupportedGrantTypes returns the grant types this server accepts, derived
// from the capability groups wired at construction time.
func (s *Server) SupportedGrantTypes() []string {
	types := make([]string, 0, len(s.supported))
	for _, gt := range []string{
		GrantTypePassword,
		GrantTypeClientCredentials,
		GrantTypeAuthorizationCode,
		GrantTypeRefreshToken,
	} {
		if s.supported[gt] {
			types = append(types, gt)
		}
	}
	return types
}

// AuthCodeLifetime returns the configured authorization-code lifetime policy
// value for hosts that mint codes.
func (s *Server) AuthCodeLifetime() time.Duration {
	return s.authCodeLifetime
}

// Grant processes one token-endpoint request. It never returns an error:
// every failure, classified or not, becomes an error Response.
func (s *Server) Grant(ctx context.Context, req *Request) *Response {
	ctx, span := s.inst.Tracer().Start(ctx, "oauth.grant")
	defer span.End()

	start := time.Now()
	g := &grant{srv: s, req: req}

	var resp *Response
	if err := g.run(ctx); err != nil {
		resp = s.errorResponse(ctx, g, err)
	} else {
		resp = g.tokenResponse()
	}

	s.metrics.RecordGrant(ctx, g.grantType, resp.StatusCode, float64(time.Since(start).Milliseconds()))
	instrumentation.SetGrantAttributes(span, g.grantType, resp.StatusCode)
	return resp
}

// errorResponse maps a pipeline failure to a wire response. Classified
// failures map via their error kind; anything else is logged and surfaced as
// a generic server_error so internals never leak into the response body.
func (s *Server) errorResponse(ctx context.Context, g *grant, err error) *Response {
	var oerr *OAuthError
	if !errors.As(err, &oerr) {
		s.logger.Error("Unclassified failure in grant pipeline",
			"grant_type", g.grantType,
			"client_id", g.clientID,
			"error", err)
		oerr = ErrServerError("An internal error occurred.")
	}
	s.metrics.RecordGrantError(ctx, g.grantType, oerr.Code)
	return newErrorResponse(oerr)
}
