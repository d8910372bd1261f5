package oauth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/reviewflow/internal/provider"
	"github.com/dropDatabas3/reviewflow/internal/store"
	storemem "github.com/dropDatabas3/reviewflow/internal/store/memory"
)

func seedCredential(t *testing.T, st *storemem.Store, c store.Credential) {
	t.Helper()
	if err := st.UpsertCredential(context.Background(), c); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestValidAccessToken_NotConnected(t *testing.T) {
	svc := NewTokenService(TokenDeps{
		Registry:    newTestRegistry(fakeResolver{}, &fakeAdapter{name: provider.Google}),
		Credentials: storemem.New(),
	})
	_, err := svc.ValidAccessToken(context.Background(), "t1", provider.Google)
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestValidAccessToken_FastPathNoNetwork(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := &fakeAdapter{name: provider.Google}
	st := storemem.New()
	seedCredential(t, st, store.Credential{
		TenantID:    "t1",
		Provider:    provider.Google,
		AccessToken: "cached",
		ExpiresAt:   ptrTime(now.Add(time.Hour)),
	})

	svc := NewTokenService(TokenDeps{
		Registry:    newTestRegistry(fakeResolver{}, fake),
		Credentials: st,
		Now:         func() time.Time { return now },
	})

	tok, err := svc.ValidAccessToken(context.Background(), "t1", provider.Google)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if tok != "cached" {
		t.Fatalf("token = %q", tok)
	}
	if fake.refreshCalls != 0 {
		t.Fatalf("refresh calls = %d, want 0", fake.refreshCalls)
	}
}

func TestValidAccessToken_NilExpiryNeverRefreshes(t *testing.T) {
	fake := &fakeAdapter{name: provider.Google}
	st := storemem.New()
	seedCredential(t, st, store.Credential{
		TenantID:    "t1",
		Provider:    provider.Google,
		AccessToken: "static",
	})
	svc := NewTokenService(TokenDeps{
		Registry:    newTestRegistry(fakeResolver{}, fake),
		Credentials: st,
	})

	tok, err := svc.ValidAccessToken(context.Background(), "t1", provider.Google)
	if err != nil || tok != "static" {
		t.Fatalf("tok=%q err=%v", tok, err)
	}
	if fake.refreshCalls != 0 {
		t.Fatalf("refresh calls = %d, want 0", fake.refreshCalls)
	}
}

func TestValidAccessToken_ExpiredRefreshesOnceAndPersists(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	newExp := now.Add(time.Hour)
	fake := &fakeAdapter{
		name:          provider.Google,
		refreshTokens: &provider.TokenSet{AccessToken: "fresh", ExpiresAt: &newExp},
	}
	st := storemem.New()
	seedCredential(t, st, store.Credential{
		TenantID:     "t1",
		Provider:     provider.Google,
		AccessToken:  "stale",
		RefreshToken: "rt",
		ExpiresAt:    ptrTime(now.Add(-time.Minute)),
	})

	svc := NewTokenService(TokenDeps{
		Registry:    newTestRegistry(fakeResolver{}, fake),
		Credentials: st,
		Now:         func() time.Time { return now },
	})

	tok, err := svc.ValidAccessToken(context.Background(), "t1", provider.Google)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if tok != "fresh" {
		t.Fatalf("token = %q, want fresh", tok)
	}
	if fake.refreshCalls != 1 {
		t.Fatalf("refresh calls = %d, want exactly 1", fake.refreshCalls)
	}

	// Persistido antes de devolver, con el refresh token preservado
	got, err := st.GetCredential(context.Background(), "t1", provider.Google)
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "fresh" || got.RefreshToken != "rt" {
		t.Fatalf("stored = %+v", got)
	}
}

func TestValidAccessToken_RotatedRefreshTokenIsStored(t *testing.T) {
	now := time.Now().UTC()
	fake := &fakeAdapter{
		name:          provider.Google,
		refreshTokens: &provider.TokenSet{AccessToken: "fresh", RefreshToken: "rt2"},
	}
	st := storemem.New()
	seedCredential(t, st, store.Credential{
		TenantID:     "t1",
		Provider:     provider.Google,
		AccessToken:  "stale",
		RefreshToken: "rt1",
		ExpiresAt:    ptrTime(now.Add(-time.Minute)),
	})
	svc := NewTokenService(TokenDeps{
		Registry:    newTestRegistry(fakeResolver{}, fake),
		Credentials: st,
	})

	if _, err := svc.ValidAccessToken(context.Background(), "t1", provider.Google); err != nil {
		t.Fatal(err)
	}
	got, _ := st.GetCredential(context.Background(), "t1", provider.Google)
	if got.RefreshToken != "rt2" {
		t.Fatalf("refresh token = %q, want rotated rt2", got.RefreshToken)
	}
}

func TestValidAccessToken_ExpiredWithoutRefreshToken(t *testing.T) {
	now := time.Now().UTC()
	fake := &fakeAdapter{name: provider.Google}
	st := storemem.New()
	seedCredential(t, st, store.Credential{
		TenantID:    "t1",
		Provider:    provider.Google,
		AccessToken: "stale",
		ExpiresAt:   ptrTime(now.Add(-time.Minute)),
	})
	svc := NewTokenService(TokenDeps{
		Registry:    newTestRegistry(fakeResolver{}, fake),
		Credentials: st,
	})

	_, err := svc.ValidAccessToken(context.Background(), "t1", provider.Google)
	if !errors.Is(err, ErrReauthorizationRequired) {
		t.Fatalf("err = %v, want ErrReauthorizationRequired", err)
	}
	if fake.refreshCalls != 0 {
		t.Fatalf("refresh calls = %d, want 0 (connection is dead)", fake.refreshCalls)
	}
}

func TestValidAccessToken_RefreshFailure(t *testing.T) {
	now := time.Now().UTC()
	fake := &fakeAdapter{
		name:       provider.Google,
		refreshErr: errors.New("invalid_grant"),
	}
	st := storemem.New()
	seedCredential(t, st, store.Credential{
		TenantID:     "t1",
		Provider:     provider.Google,
		AccessToken:  "stale",
		RefreshToken: "rt",
		ExpiresAt:    ptrTime(now.Add(-time.Minute)),
	})
	svc := NewTokenService(TokenDeps{
		Registry:    newTestRegistry(fakeResolver{}, fake),
		Credentials: st,
	})

	_, err := svc.ValidAccessToken(context.Background(), "t1", provider.Google)
	if !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("err = %v, want ErrRefreshFailed", err)
	}
	// El token viejo queda como estaba
	got, _ := st.GetCredential(context.Background(), "t1", provider.Google)
	if got.AccessToken != "stale" {
		t.Fatalf("stored token = %q, want stale untouched", got.AccessToken)
	}
}

func TestValidAccessToken_ConcurrentRefreshCollapses(t *testing.T) {
	now := time.Now().UTC()
	fake := &fakeAdapter{
		name:          provider.Google,
		refreshTokens: &provider.TokenSet{AccessToken: "fresh"},
	}
	st := storemem.New()
	seedCredential(t, st, store.Credential{
		TenantID:     "t1",
		Provider:     provider.Google,
		AccessToken:  "stale",
		RefreshToken: "rt",
		ExpiresAt:    ptrTime(now.Add(-time.Minute)),
	})
	svc := NewTokenService(TokenDeps{
		Registry:    newTestRegistry(fakeResolver{}, fake),
		Credentials: st,
	})

	const callers = 8
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			tok, err := svc.ValidAccessToken(context.Background(), "t1", provider.Google)
			if err != nil {
				t.Errorf("caller err: %v", err)
				return
			}
			tokens[i] = tok
		}()
	}
	wg.Wait()

	for i, tok := range tokens {
		if tok != "fresh" {
			t.Fatalf("caller %d got %q", i, tok)
		}
	}
	// singleflight: muchísimo menos que un refresh por caller; con todos
	// arrancando dentro de la misma ventana, lo esperable es 1
	if fake.refreshCalls > 2 {
		t.Fatalf("refresh calls = %d, want collapsed (<=2)", fake.refreshCalls)
	}
}
