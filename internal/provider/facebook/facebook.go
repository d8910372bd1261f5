// Package facebook implements the Facebook Graph provider. Instagram
// connections ride on the same Graph endpoints (Facebook Login for
// Instagram), so the instagram package reuses this adapter under its
// own name.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dropDatabas3/reviewflow/internal/observability/logger"
	"github.com/dropDatabas3/reviewflow/internal/provider"
)

const (
	authEndpoint  = "https://www.facebook.com/v18.0/dialog/oauth"
	tokenEndpoint = "https://graph.facebook.com/v18.0/oauth/access_token"
	meEndpoint    = "https://graph.facebook.com/me"

	// Long-lived tokens last ~60 days; Graph sometimes omits expires_in on
	// the upgrade response, in which case we assume the documented lifetime.
	longLivedDefault = 60 * 24 * time.Hour
)

// Scopes for page engagement reading and posting. Comma-delimited per
// Facebook Login convention.
const Scopes = "pages_read_engagement,pages_manage_posts"

// Provider implements the Facebook adapter.
type Provider struct {
	provider.OAuth2

	// ExchangeTokenURL and MeURL are overridable for tests.
	ExchangeTokenURL string
	MeURL            string
}

// Factory creates the Facebook adapter.
func Factory(cfg provider.Config, hc *http.Client) provider.Adapter {
	return New(provider.Facebook, cfg, hc)
}

// New builds the adapter under the given name. Used by the instagram
// package as well.
func New(name provider.Name, cfg provider.Config, hc *http.Client) *Provider {
	return &Provider{
		OAuth2: provider.OAuth2{
			ProviderName: name,
			Conf:         cfg,
			Endpoint:     provider.Endpoint{AuthURL: authEndpoint, TokenURL: tokenEndpoint},
			Scope:        Scopes,
			HTTP:         hc,
		},
		ExchangeTokenURL: tokenEndpoint,
		MeURL:            meEndpoint,
	}
}

// Exchange performs the authorization-code grant and then immediately
// upgrades the short-lived token to a long-lived one. If the upgrade fails
// the short-lived token is kept: a short-lived connection is better than
// none.
func (p *Provider) Exchange(ctx context.Context, code, redirectURI string) (*provider.TokenSet, error) {
	ts, err := p.OAuth2.Exchange(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}

	long, err := p.upgradeToken(ctx, ts.AccessToken)
	if err != nil {
		logger.From(ctx).Warn("long-lived token upgrade failed, keeping short-lived token",
			logger.Provider(string(p.ProviderName)),
			logger.Err(err),
		)
		return ts, nil
	}
	// Facebook does not issue refresh tokens; the long-lived token replaces
	// the short-lived one in place.
	ts.AccessToken = long.AccessToken
	ts.ExpiresAt = long.ExpiresAt
	return ts, nil
}

// upgradeToken exchanges a short-lived token for a long-lived one via the
// fb_exchange_token grant (a GET, unlike the code exchange).
func (p *Provider) upgradeToken(ctx context.Context, shortToken string) (*provider.TokenSet, error) {
	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", p.Conf.ClientID)
	q.Set("client_secret", p.Conf.ClientSecret)
	q.Set("fb_exchange_token", shortToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.ExchangeTokenURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("fb_exchange_token: http %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("fb_exchange_token: decode: %w", err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("fb_exchange_token: no access_token in response")
	}

	ttl := longLivedDefault
	if body.ExpiresIn > 0 {
		ttl = time.Duration(body.ExpiresIn) * time.Second
	}
	exp := time.Now().UTC().Add(ttl)
	return &provider.TokenSet{AccessToken: body.AccessToken, ExpiresAt: &exp}, nil
}

// ResolveIdentity calls Graph /me for the connected account's id, name
// and picture.
func (p *Provider) ResolveIdentity(ctx context.Context, accessToken string) (*provider.Identity, error) {
	q := url.Values{}
	q.Set("fields", "id,name,picture")
	q.Set("access_token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.MeURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph /me: http %d", resp.StatusCode)
	}

	var me struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		return nil, fmt.Errorf("graph /me: decode: %w", err)
	}
	return &provider.Identity{AccountID: me.ID, Name: me.Name, AvatarURL: me.Picture.Data.URL}, nil
}
