package oauth

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/reviewflow/internal/metrics"
	"github.com/dropDatabas3/reviewflow/internal/observability/logger"
	"github.com/dropDatabas3/reviewflow/internal/provider"
	"github.com/dropDatabas3/reviewflow/internal/store"
)

// CallbackService completes a provider connection: code exchange, identity
// resolution and credential persistence.
type CallbackService interface {
	CompleteConnection(ctx context.Context, p provider.Name, code, redirectURI, tenantID string) (*store.Credential, error)
}

// CallbackDeps contains dependencies for the callback service.
type CallbackDeps struct {
	Registry    *provider.Registry
	Resolver    provider.ConfigResolver
	Credentials store.CredentialStore
}

type callbackService struct {
	registry    *provider.Registry
	resolver    provider.ConfigResolver
	credentials store.CredentialStore
}

// NewCallbackService creates a CallbackService.
func NewCallbackService(d CallbackDeps) CallbackService {
	return &callbackService{
		registry:    d.Registry,
		resolver:    d.Resolver,
		credentials: d.Credentials,
	}
}

func (s *callbackService) CompleteConnection(ctx context.Context, p provider.Name, code, redirectURI, tenantID string) (*store.Credential, error) {
	log := logger.From(ctx).With(
		logger.Component("oauth.callback"),
		logger.Provider(string(p)),
		logger.TenantID(tenantID),
	)

	if code == "" {
		return nil, ErrMissingCode
	}
	if redirectURI == "" {
		return nil, ErrMissingRedirectURI
	}
	cfg := s.resolver.ProviderConfig(p)
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrProviderNotConfigured, provider.ClientIDVar(p))
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrProviderNotConfigured, provider.ClientSecretVar(p))
	}

	adapter, err := s.registry.Lookup(p)
	if err != nil {
		return nil, err
	}

	// One-shot: authorization codes are single-use, so a failed exchange is
	// surfaced as-is, never retried.
	tokens, err := adapter.Exchange(ctx, code, redirectURI)
	if err != nil {
		metrics.Exchanges.WithLabelValues(string(p), "failure").Inc()
		log.Warn("code exchange failed", logger.Err(err))
		return nil, err
	}
	metrics.Exchanges.WithLabelValues(string(p), "success").Inc()

	// Identity metadata is cosmetic; the token is the valuable artifact and
	// must be persisted even when the identity call fails.
	identity, err := adapter.ResolveIdentity(ctx, tokens.AccessToken)
	if err != nil {
		log.Warn("identity resolution failed, using placeholders", logger.Err(err))
		identity = &provider.Identity{AccountID: "unknown", Name: string(p)}
	}

	cred := store.Credential{
		TenantID:          tenantID,
		Provider:          p,
		AccessToken:       tokens.AccessToken,
		RefreshToken:      tokens.RefreshToken,
		ExpiresAt:         tokens.ExpiresAt,
		ExternalAccountID: identity.AccountID,
		DisplayName:       identity.Name,
		AvatarURL:         identity.AvatarURL,
	}
	if err := s.credentials.UpsertCredential(ctx, cred); err != nil {
		log.Error("credential upsert failed", logger.Err(err))
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	log.Info("provider connected", logger.String("account", identity.AccountID))
	return &cred, nil
}
