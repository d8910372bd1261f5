package facebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dropDatabas3/reviewflow/internal/provider"
)

// newTestProvider monta un Graph falso: POST = code exchange, GET con
// fb_exchange_token = upgrade, GET /me = identidad.
func newTestProvider(t *testing.T, upgrade http.HandlerFunc) *Provider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"short-lived","expires_in":3600}`))
			return
		}
		upgrade(w, r)
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"page123","name":"Test Page","picture":{"data":{"url":"https://cdn.example/p.jpg"}}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := New(provider.Facebook, provider.Config{ClientID: "fid", ClientSecret: "fsec"}, srv.Client())
	p.Endpoint.TokenURL = srv.URL + "/oauth/access_token"
	p.ExchangeTokenURL = srv.URL + "/oauth/access_token"
	p.MeURL = srv.URL + "/me"
	return p
}

func TestExchange_UpgradesToLongLived(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("grant_type"); got != "fb_exchange_token" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.URL.Query().Get("fb_exchange_token"); got != "short-lived" {
			t.Errorf("fb_exchange_token = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"long-lived","expires_in":5184000}`))
	})

	ts, err := p.Exchange(context.Background(), "code", "https://app.example.com/cb")
	if err != nil {
		t.Fatalf("Exchange err: %v", err)
	}
	if ts.AccessToken != "long-lived" {
		t.Fatalf("access token = %q, want long-lived", ts.AccessToken)
	}
	if ts.ExpiresAt == nil {
		t.Fatal("ExpiresAt nil")
	}
	if until := time.Until(*ts.ExpiresAt); until < 59*24*time.Hour {
		t.Fatalf("long-lived expiry too soon: %v", until)
	}
}

func TestExchange_UpgradeFailureKeepsShortLived(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	})

	ts, err := p.Exchange(context.Background(), "code", "https://app.example.com/cb")
	if err != nil {
		t.Fatalf("Exchange err: %v, want degrade not fail", err)
	}
	if ts.AccessToken != "short-lived" {
		t.Fatalf("access token = %q, want short-lived", ts.AccessToken)
	}
}

func TestExchange_UpgradeWithoutExpiryAssumesSixtyDays(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"long-lived"}`))
	})

	ts, err := p.Exchange(context.Background(), "code", "cb")
	if err != nil {
		t.Fatalf("Exchange err: %v", err)
	}
	until := time.Until(*ts.ExpiresAt)
	if until < 59*24*time.Hour || until > 61*24*time.Hour {
		t.Fatalf("default lifetime off: %v", until)
	}
}

func TestResolveIdentity_ParsesGraphMe(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {})

	id, err := p.ResolveIdentity(context.Background(), "tok")
	if err != nil {
		t.Fatalf("ResolveIdentity err: %v", err)
	}
	if id.AccountID != "page123" || id.Name != "Test Page" {
		t.Fatalf("identity = %+v", id)
	}
	if id.AvatarURL != "https://cdn.example/p.jpg" {
		t.Fatalf("avatar = %q", id.AvatarURL)
	}
}
