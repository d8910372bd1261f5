package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/reviewflow/internal/cache"
	dto "github.com/dropDatabas3/reviewflow/internal/http/dto/social"
	"github.com/dropDatabas3/reviewflow/internal/http/errors"
	mw "github.com/dropDatabas3/reviewflow/internal/http/middlewares"
	"github.com/dropDatabas3/reviewflow/internal/oauth"
	"github.com/dropDatabas3/reviewflow/internal/observability/logger"
	"github.com/dropDatabas3/reviewflow/internal/provider"
	"github.com/dropDatabas3/reviewflow/internal/store"
)

// SocialHandler sirve el ciclo de conexión de proveedores: start, callback
// y listado de conexiones.
type SocialHandler struct {
	Start       oauth.StartService
	Callback    oauth.CallbackService
	Credentials store.CredentialStore

	// StateCache valida el state anti-CSRF del callback. nil = sin validación.
	StateCache cache.Cache
}

// Register monta las rutas del handler. El middleware de auth se aplica a
// nivel de router.
func (h *SocialHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Post("/api/social", h.dispatch)
		r.Post("/api/social/start", h.start)
		r.Post("/api/social/callback", h.callback)
		r.Get("/api/social/connections", h.connections)
	})
}

// dispatch atiende el endpoint combinado que discrimina por "action".
func (h *SocialHandler) dispatch(w http.ResponseWriter, r *http.Request) {
	var probe struct {
		Action string `json:"action"`
	}
	body, ok := peekJSON(w, r, &probe)
	if !ok {
		return
	}
	switch probe.Action {
	case "start":
		h.startFrom(w, r, body)
	case "callback":
		h.callbackFrom(w, r, body)
	default:
		errors.WriteError(w, errors.ErrBadRequest.WithDetail("unknown action"))
	}
}

func (h *SocialHandler) start(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	h.startFrom(w, r, body)
}

func (h *SocialHandler) startFrom(w http.ResponseWriter, r *http.Request, body []byte) {
	var req dto.StartRequest
	if !decodeJSON(w, body, &req) {
		return
	}

	p, err := provider.Parse(req.Platform)
	if err != nil {
		errors.WriteError(w, errors.FromDomain(err))
		return
	}

	tenantID := mw.GetTenantID(r.Context())
	authURL, err := h.Start.BuildAuthorizationURL(r.Context(), p, req.RedirectURI, tenantID)
	if err != nil {
		errors.WriteError(w, errors.FromDomain(err))
		return
	}

	writeJSON(w, http.StatusOK, dto.StartResponse{AuthURL: authURL})
}

func (h *SocialHandler) callback(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	h.callbackFrom(w, r, body)
}

func (h *SocialHandler) callbackFrom(w http.ResponseWriter, r *http.Request, body []byte) {
	var req dto.CallbackRequest
	if !decodeJSON(w, body, &req) {
		return
	}

	p, err := provider.Parse(req.Platform)
	if err != nil {
		errors.WriteError(w, errors.FromDomain(err))
		return
	}

	tenantID := mw.GetTenantID(r.Context())

	// El state es telemetría anti-CSRF best-effort: una pérdida de cache no
	// debe romper una conexión legítima, así que un mismatch solo se loguea.
	if req.State != "" && h.StateCache != nil {
		if !oauth.ValidateState(h.StateCache, req.State, tenantID, p) {
			logger.From(r.Context()).Warn("callback state mismatch",
				logger.Provider(string(p)),
				logger.TenantID(tenantID),
			)
		}
	}

	cred, err := h.Callback.CompleteConnection(r.Context(), p, req.Code, req.RedirectURI, tenantID)
	if err != nil {
		errors.WriteError(w, errors.FromDomain(err))
		return
	}

	writeJSON(w, http.StatusOK, dto.CallbackResponse{
		Success:   true,
		Provider:  string(cred.Provider),
		AccountID: cred.ExternalAccountID,
		Name:      cred.DisplayName,
		AvatarURL: cred.AvatarURL,
	})
}

func (h *SocialHandler) connections(w http.ResponseWriter, r *http.Request) {
	tenantID := mw.GetTenantID(r.Context())

	creds, err := h.Credentials.ListCredentials(r.Context(), tenantID)
	if err != nil {
		errors.WriteError(w, errors.FromDomain(err))
		return
	}

	out := dto.ConnectionsResponse{Connections: make([]dto.Connection, 0, len(creds))}
	for _, c := range creds {
		out.Connections = append(out.Connections, dto.Connection{
			Provider:  string(c.Provider),
			AccountID: c.ExternalAccountID,
			Name:      c.DisplayName,
			AvatarURL: c.AvatarURL,
			ExpiresAt: c.ExpiresAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
