// Package linkedin implements the LinkedIn provider.
package linkedin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dropDatabas3/reviewflow/internal/provider"
)

const (
	authEndpoint     = "https://www.linkedin.com/oauth/v2/authorization"
	tokenEndpoint    = "https://www.linkedin.com/oauth/v2/accessToken"
	userinfoEndpoint = "https://api.linkedin.com/v2/userinfo"
)

// Scopes for profile read and member posting.
const Scopes = "r_liteprofile r_emailaddress w_member_social"

// Provider implements the LinkedIn adapter.
type Provider struct {
	provider.OAuth2

	// UserinfoURL is overridable for tests.
	UserinfoURL string
}

// Factory creates the LinkedIn adapter.
func Factory(cfg provider.Config, hc *http.Client) provider.Adapter {
	return &Provider{
		OAuth2: provider.OAuth2{
			ProviderName: provider.LinkedIn,
			Conf:         cfg,
			Endpoint:     provider.Endpoint{AuthURL: authEndpoint, TokenURL: tokenEndpoint},
			Scope:        Scopes,
			HTTP:         hc,
		},
		UserinfoURL: userinfoEndpoint,
	}
}

// ResolveIdentity calls the OIDC userinfo endpoint.
func (p *Provider) ResolveIdentity(ctx context.Context, accessToken string) (*provider.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserinfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("linkedin userinfo: http %d", resp.StatusCode)
	}

	var info struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("linkedin userinfo: decode: %w", err)
	}
	return &provider.Identity{AccountID: info.Sub, Name: info.Name, AvatarURL: info.Picture}, nil
}
