package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dropDatabas3/reviewflow/internal/oauth"
	"github.com/dropDatabas3/reviewflow/internal/provider"
)

// errorResponse estructura interna para la serialización JSON.
// El campo "error" es el contrato con los frontends; "code" y "detail"
// son extras para diagnóstico.
type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// WriteError escribe una respuesta HTTP basada en el error proporcionado.
// Maneja automáticamente errores de tipo *AppError y errores genéricos.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	resp := errorResponse{
		Error:  appErr.Message,
		Code:   appErr.Code,
		Detail: appErr.Detail,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)

	_ = json.NewEncoder(w).Encode(resp)
}

// FromDomain mapea los errores sentinela de las capas de dominio al catálogo
// HTTP. El detail lleva el mensaje original (los valores de tokens nunca
// viajan en los errores de dominio, así que es seguro exponerlo).
func FromDomain(err error) *AppError {
	switch {
	case errors.Is(err, provider.ErrUnsupported):
		return ErrUnsupportedProvider.WithDetail(err.Error()).WithCause(err)
	case errors.Is(err, oauth.ErrProviderNotConfigured):
		return ErrProviderNotConfigured.WithDetail(err.Error()).WithCause(err)
	case errors.Is(err, oauth.ErrMissingRedirectURI), errors.Is(err, oauth.ErrMissingCode):
		return ErrMissingFields.WithDetail(err.Error()).WithCause(err)
	case errors.Is(err, provider.ErrTokenExchange):
		return ErrTokenExchangeFailed.WithDetail(err.Error()).WithCause(err)
	case errors.Is(err, oauth.ErrReauthorizationRequired):
		return ErrReauthorizationRequired.WithCause(err)
	case errors.Is(err, oauth.ErrRefreshFailed):
		return ErrRefreshFailed.WithDetail(err.Error()).WithCause(err)
	case errors.Is(err, oauth.ErrNotConnected):
		return ErrNotConnected.WithCause(err)
	// Sin detail: el mensaje del error de DB puede traer fragmentos del DSN.
	case errors.Is(err, oauth.ErrPersistFailed):
		return ErrPersistFailed.WithCause(err)
	default:
		return FromError(err)
	}
}
