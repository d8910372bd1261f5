// Package http arma el servidor de la API: router, middlewares y rutas.
package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/reviewflow/internal/cache"
	"github.com/dropDatabas3/reviewflow/internal/http/errors"
	"github.com/dropDatabas3/reviewflow/internal/http/handlers"
	mw "github.com/dropDatabas3/reviewflow/internal/http/middlewares"
	"github.com/dropDatabas3/reviewflow/internal/metrics"
	"github.com/dropDatabas3/reviewflow/internal/oauth"
	"github.com/dropDatabas3/reviewflow/internal/store"
)

// Deps contiene todo lo necesario para construir el handler raíz.
type Deps struct {
	Start       oauth.StartService
	Callback    oauth.CallbackService
	Credentials store.CredentialStore
	StateCache  cache.Cache

	// JWTSecret valida los bearer tokens de sesión (HS256, claim "tid").
	JWTSecret []byte

	// CORSAllowedOrigins restringe el header Allow-Origin. Vacío o "*" =
	// permisivo.
	CORSAllowedOrigins []string

	// CheckStore / CheckCache alimentan /readyz. nil = no chequear.
	CheckStore func(ctx context.Context) error
	CheckCache func(ctx context.Context) error
}

// BuildHandler construye el http.Handler completo del servicio.
func BuildHandler(d Deps) http.Handler {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrMethodNotAllowed)
	})

	// Endpoints operativos, sin auth ni CORS
	r.Get("/healthz", handlers.NewHealthzHandler())
	r.Get("/readyz", handlers.NewReadyzHandler(d.CheckStore, d.CheckCache))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// API social: bearer obligatorio. El CORS va en la cadena externa para
	// que el preflight OPTIONS corte antes del auth y del routing.
	social := &handlers.SocialHandler{
		Start:       d.Start,
		Callback:    d.Callback,
		Credentials: d.Credentials,
		StateCache:  d.StateCache,
	}
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth(d.JWTSecret))
		social.Register(r)
	})

	// Cadena externa: request id primero, luego logging, recover y CORS
	return mw.Chain(r,
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithRecover(),
		mw.WithCORS(d.CORSAllowedOrigins),
	)
}

// Start levanta el servidor HTTP en addr.
func Start(addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler}
	return srv.ListenAndServe()
}
