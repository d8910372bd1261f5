package oauth

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dropDatabas3/reviewflow/internal/provider"
)

// fakeResolver resolves credentials from a fixed map.
type fakeResolver map[provider.Name]provider.Config

func (f fakeResolver) ProviderConfig(n provider.Name) provider.Config { return f[n] }

// fakeAdapter counts calls so tests can assert "no network happened".
type fakeAdapter struct {
	name provider.Name

	exchangeCalls int32
	refreshCalls  int32

	exchangeTokens *provider.TokenSet
	exchangeErr    error
	refreshTokens  *provider.TokenSet
	refreshErr     error
	identity       *provider.Identity
	identityErr    error
}

func (f *fakeAdapter) Name() provider.Name { return f.name }
func (f *fakeAdapter) Scopes() string      { return "scope-a scope-b" }

func (f *fakeAdapter) AuthorizeURL(redirectURI, state string) string {
	return fmt.Sprintf("https://auth.example.com/authorize?redirect_uri=%s&state=%s", redirectURI, state)
}

func (f *fakeAdapter) Exchange(ctx context.Context, code, redirectURI string) (*provider.TokenSet, error) {
	atomic.AddInt32(&f.exchangeCalls, 1)
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.exchangeTokens, nil
}

func (f *fakeAdapter) Refresh(ctx context.Context, refreshToken string) (*provider.TokenSet, error) {
	atomic.AddInt32(&f.refreshCalls, 1)
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshTokens, nil
}

func (f *fakeAdapter) ResolveIdentity(ctx context.Context, accessToken string) (*provider.Identity, error) {
	if f.identityErr != nil {
		return nil, f.identityErr
	}
	return f.identity, nil
}

// newTestRegistry registers the fake under provider.Google.
func newTestRegistry(resolver provider.ConfigResolver, fake *fakeAdapter) *provider.Registry {
	reg := provider.NewRegistry(resolver, &http.Client{Timeout: time.Second})
	reg.Register(provider.Google, func(cfg provider.Config, hc *http.Client) provider.Adapter {
		return fake
	})
	return reg
}

func ptrTime(t time.Time) *time.Time { return &t }
