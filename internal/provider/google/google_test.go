package google

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/dropDatabas3/reviewflow/internal/provider"
)

func TestAuthorizeURL_OfflineConsent(t *testing.T) {
	p := Factory(provider.Config{ClientID: "gid"}, nil)

	raw := p.AuthorizeURL("https://app.example.com/oauth/cb", "s1")
	if !strings.HasPrefix(raw, "https://accounts.google.com/o/oauth2/v2/auth?") {
		t.Fatalf("unexpected prefix: %s", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("access_type") != "offline" {
		t.Fatalf("access_type = %q", q.Get("access_type"))
	}
	if q.Get("prompt") != "consent" {
		t.Fatalf("prompt = %q", q.Get("prompt"))
	}
	if q.Get("scope") != Scopes {
		t.Fatalf("scope = %q", q.Get("scope"))
	}
	if q.Get("client_id") != "gid" {
		t.Fatalf("client_id = %q", q.Get("client_id"))
	}
}

func TestResolveIdentity_SyntheticNoNetwork(t *testing.T) {
	// Sin HTTP client: si hiciera red, esto entraría en panic
	p := Factory(provider.Config{}, nil).(*Provider)
	p.HTTP = nil

	id, err := p.ResolveIdentity(context.Background(), "whatever")
	if err != nil {
		t.Fatalf("ResolveIdentity err: %v", err)
	}
	if id.AccountID != "google_business" {
		t.Fatalf("AccountID = %q", id.AccountID)
	}
	if id.Name != "Google Business Profile" {
		t.Fatalf("Name = %q", id.Name)
	}
}
