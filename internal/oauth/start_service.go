package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/dropDatabas3/reviewflow/internal/cache"
	"github.com/dropDatabas3/reviewflow/internal/observability/logger"
	"github.com/dropDatabas3/reviewflow/internal/provider"
)

// StartService builds the authorization URL for the "start" phase of a
// provider connection.
type StartService interface {
	BuildAuthorizationURL(ctx context.Context, p provider.Name, redirectURI, tenantID string) (string, error)
}

// StartDeps contains dependencies for the start service.
type StartDeps struct {
	Registry *provider.Registry
	Resolver provider.ConfigResolver

	// StateCache persists the anti-CSRF state token, best effort. nil
	// disables state persistence without disabling state generation.
	StateCache cache.Cache
	StateTTL   time.Duration
}

type startService struct {
	registry   *provider.Registry
	resolver   provider.ConfigResolver
	stateCache cache.Cache
	stateTTL   time.Duration
}

// NewStartService creates a StartService.
func NewStartService(d StartDeps) StartService {
	ttl := d.StateTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &startService{
		registry:   d.Registry,
		resolver:   d.Resolver,
		stateCache: d.StateCache,
		stateTTL:   ttl,
	}
}

// stateKey namespaces CSRF state entries in the cache.
const stateKeyPrefix = "oauth:state:"

func (s *startService) BuildAuthorizationURL(ctx context.Context, p provider.Name, redirectURI, tenantID string) (string, error) {
	log := logger.From(ctx).With(
		logger.Component("oauth.start"),
		logger.Provider(string(p)),
		logger.TenantID(tenantID),
	)

	if redirectURI == "" {
		return "", ErrMissingRedirectURI
	}
	if s.resolver.ProviderConfig(p).ClientID == "" {
		return "", fmt.Errorf("%w: %s not set", ErrProviderNotConfigured, provider.ClientIDVar(p))
	}

	adapter, err := s.registry.Lookup(p)
	if err != nil {
		return "", err
	}

	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}

	// Persist state -> tenant association for callback validation. A cache
	// failure must not block returning the URL.
	if s.stateCache != nil {
		s.stateCache.Set(stateKeyPrefix+state, []byte(tenantID+":"+string(p)), s.stateTTL)
	}

	u := adapter.AuthorizeURL(redirectURI, state)
	log.Debug("authorization url built")
	return u, nil
}

// ValidateState checks a callback state token against the cache and burns
// it. With no cache configured every state validates (state persistence is
// an optional capability).
func ValidateState(c cache.Cache, state, tenantID string, p provider.Name) bool {
	if c == nil {
		return true
	}
	v, ok := c.Get(stateKeyPrefix + state)
	if !ok {
		return false
	}
	c.Delete(stateKeyPrefix + state)
	return string(v) == tenantID+":"+string(p)
}

func generateState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
