package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/reviewflow/internal/metrics"
	"github.com/dropDatabas3/reviewflow/internal/observability/logger"
	"github.com/dropDatabas3/reviewflow/internal/provider"
	"github.com/dropDatabas3/reviewflow/internal/store"
)

// TokenService is the refresh guard: the entry point for any feature that
// needs a valid provider access token on a tenant's behalf.
type TokenService interface {
	ValidAccessToken(ctx context.Context, tenantID string, p provider.Name) (string, error)
}

// TokenDeps contains dependencies for the token service.
type TokenDeps struct {
	Registry    *provider.Registry
	Credentials store.CredentialStore

	// Now is injectable for expiry tests. Defaults to time.Now.
	Now func() time.Time
}

type tokenService struct {
	registry    *provider.Registry
	credentials store.CredentialStore
	now         func() time.Time

	// flight collapses concurrent refreshes per (tenant, provider) so two
	// racing callers cannot invalidate each other's freshly issued token.
	flight singleflight.Group
}

// NewTokenService creates a TokenService.
func NewTokenService(d TokenDeps) TokenService {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &tokenService{
		registry:    d.Registry,
		credentials: d.Credentials,
		now:         now,
	}
}

func (s *tokenService) ValidAccessToken(ctx context.Context, tenantID string, p provider.Name) (string, error) {
	cred, err := s.credentials.GetCredential(ctx, tenantID, p)
	if err != nil {
		if errors.Is(err, store.ErrCredentialNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotConnected, p)
		}
		return "", fmt.Errorf("load credential: %w", err)
	}

	// Fast path: nil expiry means non-expiring, future expiry means still
	// valid. No network call.
	if !cred.Expired(s.now()) {
		return cred.AccessToken, nil
	}

	if cred.RefreshToken == "" {
		return "", fmt.Errorf("%w: %s token expired and no refresh token", ErrReauthorizationRequired, p)
	}

	token, err, _ := s.flight.Do(tenantID+":"+string(p), func() (any, error) {
		return s.refresh(ctx, tenantID, p, cred)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// refresh performs the refresh-token grant and persists the outcome before
// returning the new token.
func (s *tokenService) refresh(ctx context.Context, tenantID string, p provider.Name, cred *store.Credential) (string, error) {
	log := logger.From(ctx).With(
		logger.Component("oauth.refresh"),
		logger.Provider(string(p)),
		logger.TenantID(tenantID),
	)

	adapter, err := s.registry.Lookup(p)
	if err != nil {
		return "", err
	}

	tokens, err := adapter.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		metrics.Refreshes.WithLabelValues(string(p), "failure").Inc()
		log.Warn("refresh grant rejected", logger.Err(err))
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	updated := *cred
	updated.AccessToken = tokens.AccessToken
	updated.ExpiresAt = tokens.ExpiresAt
	// Refresh token preserved unless the provider rotated it.
	if tokens.RefreshToken != "" {
		updated.RefreshToken = tokens.RefreshToken
	}

	if err := s.credentials.UpsertCredential(ctx, updated); err != nil {
		log.Error("persisting refreshed token failed", logger.Err(err))
		return "", fmt.Errorf("persist refreshed credential: %w", err)
	}

	metrics.Refreshes.WithLabelValues(string(p), "success").Inc()
	log.Info("access token refreshed")
	return updated.AccessToken, nil
}
