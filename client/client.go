// Package client is a convenience wrapper around golang.org/x/oauth2 for Go
// programs that obtain tokens from an engine-backed token endpoint. It fixes
// the auth style to HTTP Basic, which is the only client-authentication
// method the endpoint accepts.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Config holds the endpoint location and the client credentials.
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string

	// HTTPClient overrides the http.Client used for token requests.
	HTTPClient *http.Client
}

// Client obtains tokens from a token endpoint on behalf of one OAuth client.
type Client struct {
	config     Config
	httpClient *http.Client
}

// New creates a Client for the given endpoint and credentials.
func New(config Config) (*Client, error) {
	if config.TokenURL == "" {
		return nil, fmt.Errorf("token URL is required")
	}
	if config.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if config.ClientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{config: config, httpClient: httpClient}, nil
}

func (c *Client) endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		TokenURL:  c.config.TokenURL,
		AuthStyle: oauth2.AuthStyleInHeader,
	}
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// PasswordToken redeems resource-owner credentials for a token.
func (c *Client) PasswordToken(ctx context.Context, username, password string) (*oauth2.Token, error) {
	config := &oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		Endpoint:     c.endpoint(),
	}
	token, err := config.PasswordCredentialsToken(c.withHTTPClient(ctx), username, password)
	if err != nil {
		return nil, fmt.Errorf("password grant failed: %w", err)
	}
	return token, nil
}

// AuthCodeToken redeems an authorization code for a token.
func (c *Client) AuthCodeToken(ctx context.Context, code string) (*oauth2.Token, error) {
	config := &oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		Endpoint:     c.endpoint(),
	}
	token, err := config.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("authorization code grant failed: %w", err)
	}
	return token, nil
}

// ClientCredentialsSource returns a self-refreshing token source backed by
// the client_credentials grant.
func (c *Client) ClientCredentialsSource(ctx context.Context) oauth2.TokenSource {
	config := &clientcredentials.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		TokenURL:     c.config.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	return config.TokenSource(c.withHTTPClient(ctx))
}

// TokenSource returns a source that serves token until it expires, then
// renews it through the refresh_token grant.
func (c *Client) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	config := &oauth2.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		Endpoint:     c.endpoint(),
	}
	return config.TokenSource(c.withHTTPClient(ctx), token)
}
