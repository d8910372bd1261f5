package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrTokenExchange wraps any provider-side rejection of a token grant. The
// wrapped message carries the provider's error description verbatim for
// operator diagnosis.
var ErrTokenExchange = errors.New("token exchange failed")

// Endpoint holds the two OAuth2 URLs of a provider.
type Endpoint struct {
	AuthURL  string
	TokenURL string
}

// OAuth2 implements the common authorization-code handshake. Provider
// sub-packages embed it and override what differs (Facebook's long-lived
// upgrade, per-provider identity calls).
type OAuth2 struct {
	ProviderName Name
	Conf         Config
	Endpoint     Endpoint
	Scope        string     // space- or comma-delimited, provider dependent
	AuthParams   url.Values // extra authorize-URL params (access_type, prompt, ...)
	HTTP         *http.Client
}

// DefaultHTTPClient is used when an adapter is built without one. Provider
// endpoints sit behind a user-facing "Connect" button, so a hung upstream
// call must fail after a bounded wait.
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *OAuth2) Name() Name { return c.ProviderName }

func (c *OAuth2) Scopes() string { return c.Scope }

// AuthorizeURL builds the canonical authorization-code URL.
func (c *OAuth2) AuthorizeURL(redirectURI, state string) string {
	u, _ := url.Parse(c.Endpoint.AuthURL)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", c.Conf.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("scope", c.Scope)
	if state != "" {
		q.Set("state", state)
	}
	for k, vs := range c.AuthParams {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Exchange trades an authorization code for a token set.
func (c *OAuth2) Exchange(ctx context.Context, code, redirectURI string) (*TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.Conf.ClientID)
	form.Set("client_secret", c.Conf.ClientSecret)
	form.Set("redirect_uri", redirectURI)
	return c.PostTokenForm(ctx, form)
}

// Refresh performs a refresh-token grant against the token endpoint.
func (c *OAuth2) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.Conf.ClientID)
	form.Set("client_secret", c.Conf.ClientSecret)
	return c.PostTokenForm(ctx, form)
}

// tokenResponse is the wire shape shared by all four providers' token
// endpoints (error fields included, since they come in a 200 on some).
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Error        any    `json:"error,omitempty"`
	ErrorDesc    string `json:"error_description,omitempty"`
}

// PostTokenForm posts a url-encoded grant to the token endpoint and
// normalizes the response. Any non-2xx status, error field, or missing
// access_token fails with ErrTokenExchange — never a partial success.
func (c *OAuth2) PostTokenForm(ctx context.Context, form url.Values) (*TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTokenExchange, c.ProviderName, err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&tr)

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: %s http %d: %s", ErrTokenExchange, c.ProviderName, resp.StatusCode, tr.errorDescription())
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %s: malformed response: %v", ErrTokenExchange, c.ProviderName, decodeErr)
	}
	if tr.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrTokenExchange, c.ProviderName, tr.errorDescription())
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: %s: no access_token in response", ErrTokenExchange, c.ProviderName)
	}
	return tr.toTokenSet(), nil
}

func (c *OAuth2) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return DefaultHTTPClient()
}

func (tr *tokenResponse) toTokenSet() *TokenSet {
	ts := &TokenSet{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}
	if tr.ExpiresIn > 0 {
		exp := time.Now().UTC().Add(time.Duration(tr.ExpiresIn) * time.Second)
		ts.ExpiresAt = &exp
	}
	return ts
}

// errorDescription renders whatever error shape the provider returned.
// Facebook nests an object under "error", Google/LinkedIn use RFC 6749
// error/error_description strings.
func (tr *tokenResponse) errorDescription() string {
	if tr.ErrorDesc != "" {
		return tr.ErrorDesc
	}
	switch e := tr.Error.(type) {
	case string:
		return e
	case map[string]any:
		if msg, ok := e["message"].(string); ok {
			return msg
		}
	}
	if tr.Error != nil {
		return fmt.Sprintf("%v", tr.Error)
	}
	return "no error description"
}
