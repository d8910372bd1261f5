package handlers

import (
	"context"
	"net/http"
	"os"

	"github.com/dropDatabas3/reviewflow/internal/http/errors"
	"github.com/dropDatabas3/reviewflow/internal/observability/logger"
)

// NewReadyzHandler reporta si el servicio puede atender tráfico. checkStore
// y checkCache son opcionales (nil = no chequear).
func NewReadyzHandler(checkStore, checkCache func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if v := os.Getenv("SERVICE_VERSION"); v != "" {
			w.Header().Set("X-Service-Version", v)
		}

		if checkStore != nil {
			if err := checkStore(r.Context()); err != nil {
				logger.From(r.Context()).Error("store unavailable", logger.Err(err))
				errors.WriteError(w, errors.ErrServiceUnavailable.WithDetail("store unavailable"))
				return
			}
		}

		if checkCache != nil {
			if err := checkCache(r.Context()); err != nil {
				// Cache caída degrada pero no tumba el servicio
				logger.From(r.Context()).Warn("cache unavailable", logger.Err(err))
			}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}

// NewHealthzHandler: liveness plano, sin dependencias.
func NewHealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
