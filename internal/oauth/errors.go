package oauth

import "errors"

// Service errors. The HTTP layer maps these onto status codes; everything
// token-related surfaces to the caller with a descriptive message, because
// a corrupted or partial credential is worse than a visible failure.
var (
	// ErrMissingRedirectURI: a missing redirect URI is a deployment
	// misconfiguration, not a user error.
	ErrMissingRedirectURI = errors.New("redirect_uri is required")

	// ErrMissingCode: callback invoked without an authorization code.
	ErrMissingCode = errors.New("code is required")

	// ErrProviderNotConfigured: the server is missing the provider's client
	// credentials. The message names the variable, never its value.
	ErrProviderNotConfigured = errors.New("provider not configured")

	// ErrNotConnected: no credential row exists for the tenant/provider.
	// The caller must prompt the user to connect.
	ErrNotConnected = errors.New("provider not connected")

	// ErrPersistFailed: the exchanged credential could not be written. The
	// authorization code is already burned, so the user has to redo the
	// flow; surfaced to the frontend as a retriable request error.
	ErrPersistFailed = errors.New("credential persistence failed")

	// ErrRefreshFailed: the refresh-token grant was rejected by the
	// provider. Surfaces as "reconnection required"; never retried
	// silently, since repeated failed refreshes can trip provider-side
	// rate limits.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrReauthorizationRequired: token expired and there is no refresh
	// token. Only a fresh start/callback cycle revives the connection.
	ErrReauthorizationRequired = errors.New("reauthorization required")
)
