// Package metrics define los contadores Prometheus del servicio.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Exchanges cuenta los intercambios de authorization code por resultado.
	Exchanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_exchanges_total",
		Help: "Intercambios de authorization code por proveedor y resultado",
	}, []string{"provider", "result"})

	// Refreshes cuenta los refresh grants por resultado.
	Refreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_refreshes_total",
		Help: "Refresh grants por proveedor y resultado",
	}, []string{"provider", "result"})

	// ReportDispatches cuenta los envíos de reportes programados.
	ReportDispatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_dispatches_total",
		Help: "Despachos de reportes programados por resultado",
	}, []string{"result"})

	registerOnce sync.Once
)

// Register registra los collectors. Idempotente.
func Register(r prometheus.Registerer) {
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	registerOnce.Do(func() {
		r.MustRegister(Exchanges, Refreshes, ReportDispatches)
	})
}

// Handler expone /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
