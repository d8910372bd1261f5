// Package provider defines the social provider abstraction for Reviewflow.
//
// Each supported platform (Google, Facebook, Instagram, LinkedIn) implements
// the Adapter interface in its own sub-package. Adding a platform means adding
// a sub-package and registering its factory at startup; nothing else changes.
//
// Design patterns:
// - Strategy: each provider is a strategy for the OAuth2 handshake
// - Factory: the Registry creates provider instances on demand
// - Adapter: normalize provider token/identity responses to common types
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Name identifies a supported provider.
type Name string

const (
	Google    Name = "google"
	Facebook  Name = "facebook"
	Instagram Name = "instagram"
	LinkedIn  Name = "linkedin"
)

// All lists every supported provider, in registry order.
func All() []Name {
	return []Name{Google, Facebook, Instagram, LinkedIn}
}

// ErrUnsupported is returned for a platform outside the known set.
var ErrUnsupported = errors.New("unsupported provider")

// Parse validates a caller-supplied platform string.
func Parse(s string) (Name, error) {
	switch Name(strings.ToLower(strings.TrimSpace(s))) {
	case Google:
		return Google, nil
	case Facebook:
		return Facebook, nil
	case Instagram:
		return Instagram, nil
	case LinkedIn:
		return LinkedIn, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, s)
	}
}

// ClientIDVar returns the env/config variable name holding the provider's
// client id. Used in configuration error messages so operators know exactly
// what to provision — the value itself is never logged.
func ClientIDVar(n Name) string {
	return strings.ToUpper(string(n)) + "_CLIENT_ID"
}

// ClientSecretVar returns the variable name holding the client secret.
func ClientSecretVar(n Name) string {
	return strings.ToUpper(string(n)) + "_CLIENT_SECRET"
}

// Config carries the OAuth client credentials for one provider instance.
type Config struct {
	ClientID     string
	ClientSecret string
}

// ConfigResolver resolves client credentials per provider. Injected so the
// engine never reads the environment ad hoc and tests can use fakes.
type ConfigResolver interface {
	ProviderConfig(n Name) Config
}

// TokenSet is a normalized token response.
type TokenSet struct {
	AccessToken  string
	RefreshToken string     // empty when the provider issues none
	ExpiresAt    *time.Time // nil = treat as non-expiring
}

// Identity is the provider's answer to "who am I".
type Identity struct {
	AccountID string
	Name      string
	AvatarURL string
}

// Adapter is the capability set every provider implements.
type Adapter interface {
	Name() Name

	// AuthorizeURL builds the authorization-code URL the end user is
	// redirected to. The state parameter is the anti-CSRF token.
	AuthorizeURL(redirectURI, state string) string

	// Exchange trades an authorization code for tokens. One-shot: codes are
	// single-use, so callers must not retry on failure.
	Exchange(ctx context.Context, code, redirectURI string) (*TokenSet, error)

	// Refresh performs a refresh-token grant.
	Refresh(ctx context.Context, refreshToken string) (*TokenSet, error)

	// ResolveIdentity fetches the stable external account id and display
	// identity for a fresh access token.
	ResolveIdentity(ctx context.Context, accessToken string) (*Identity, error)

	// Scopes returns the scope string requested during authorization,
	// exactly as it appears in the authorize URL.
	Scopes() string
}
