// Package instagram implements the Instagram provider. Instagram business
// accounts are connected through Facebook Login, so the adapter is the
// Facebook Graph client operating under the instagram name — including the
// long-lived token upgrade.
package instagram

import (
	"net/http"

	"github.com/dropDatabas3/reviewflow/internal/provider"
	"github.com/dropDatabas3/reviewflow/internal/provider/facebook"
)

// Factory creates the Instagram adapter.
func Factory(cfg provider.Config, hc *http.Client) provider.Adapter {
	return facebook.New(provider.Instagram, cfg, hc)
}
