// Package google implements the Google Business Profile provider.
package google

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dropDatabas3/reviewflow/internal/provider"
)

const (
	authEndpoint  = "https://accounts.google.com/o/oauth2/v2/auth"
	tokenEndpoint = "https://oauth2.googleapis.com/token"

	// The connected "account" is a business profile grant, not a personal
	// identity, so the stored identity is synthetic.
	accountID   = "google_business"
	accountName = "Google Business Profile"
)

// Scopes requested for Business Profile management plus basic OIDC identity.
const Scopes = "https://www.googleapis.com/auth/business.manage openid email profile"

// Provider implements the Google adapter.
type Provider struct {
	provider.OAuth2
}

// Factory creates the Google adapter.
func Factory(cfg provider.Config, hc *http.Client) provider.Adapter {
	return &Provider{OAuth2: provider.OAuth2{
		ProviderName: provider.Google,
		Conf:         cfg,
		Endpoint:     provider.Endpoint{AuthURL: authEndpoint, TokenURL: tokenEndpoint},
		Scope:        Scopes,
		// access_type=offline + prompt=consent force refresh-token issuance
		// even on repeat consent.
		AuthParams: url.Values{
			"access_type": {"offline"},
			"prompt":      {"consent"},
		},
		HTTP: hc,
	}}
}

// ResolveIdentity returns the fixed Business Profile identity. No network
// call: Google's userinfo would describe the person, not the grant.
func (p *Provider) ResolveIdentity(ctx context.Context, accessToken string) (*provider.Identity, error) {
	return &provider.Identity{AccountID: accountID, Name: accountName}, nil
}
