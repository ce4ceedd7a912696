package oauth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const (
	mediaJSON = "application/json;charset=UTF-8"

	// tokenTypeBearer is the only token type this engine issues.
	tokenTypeBearer = "bearer"
)

// tokenPayload is the success body. Field order is the wire order.
type tokenPayload struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// tokenResponse synthesizes the success response from final pipeline state.
func (g *grant) tokenResponse() *Response {
	payload := tokenPayload{
		AccessToken:  g.accessToken,
		TokenType:    tokenTypeBearer,
		RefreshToken: g.refreshToken,
	}
	if g.srv.accessTokenLifetime > 0 {
		payload.ExpiresIn = int64(g.srv.accessTokenLifetime.Seconds())
	}

	// tokenPayload marshals to a fixed, valid shape; an error here would be
	// a programming defect.
	body, err := json.Marshal(payload)
	if err != nil {
		return newErrorResponse(ErrServerError("An internal error occurred."))
	}

	return &Response{
		StatusCode: http.StatusOK,
		Header: map[string]string{
			"Content-Type":  mediaJSON,
			"Cache-Control": "no-store",
			"Pragma":        "no-cache",
		},
		Body: string(body),
	}
}

// newErrorResponse synthesizes the wire response for a classified failure.
func newErrorResponse(oerr *OAuthError) *Response {
	header := map[string]string{
		"Content-Type":  mediaFormURLEncoded,
		"Cache-Control": "no-store",
		"Pragma":        "no-cache",
	}
	// RFC 6749 section 5.2: challenge the client when authentication failed.
	if oerr.Code == ErrorCodeInvalidClient {
		header["WWW-Authenticate"] = `Basic realm="Service"`
	}

	return &Response{
		StatusCode: oerr.Status,
		Header:     header,
		Body:       fmt.Sprintf("error=%s&error_description=%s", oerr.Code, url.QueryEscape(oerr.Description)),
	}
}
