package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	cachemem "github.com/dropDatabas3/reviewflow/internal/cache/memory"
	"github.com/dropDatabas3/reviewflow/internal/oauth"
	"github.com/dropDatabas3/reviewflow/internal/provider"
	"github.com/dropDatabas3/reviewflow/internal/provider/google"
	"github.com/dropDatabas3/reviewflow/internal/store"
	storemem "github.com/dropDatabas3/reviewflow/internal/store/memory"
)

const testSecret = "test-secret"

type testResolver map[provider.Name]provider.Config

func (r testResolver) ProviderConfig(n provider.Name) provider.Config { return r[n] }

// stubGoogle keeps the real authorize URL and identity but fakes the code
// exchange so no request leaves the test.
type stubGoogle struct {
	provider.Adapter
}

func (s *stubGoogle) Exchange(ctx context.Context, code, redirectURI string) (*provider.TokenSet, error) {
	exp := time.Now().UTC().Add(time.Hour)
	return &provider.TokenSet{AccessToken: "ya29.test-token", RefreshToken: "1//refresh", ExpiresAt: &exp}, nil
}

func newTestHandler(t *testing.T) (http.Handler, *storemem.Store) {
	t.Helper()
	st := storemem.New()
	return buildTestHandler(t, st), st
}

func buildTestHandler(t *testing.T, creds store.CredentialStore) http.Handler {
	t.Helper()
	resolver := testResolver{
		provider.Google: {ClientID: "gid", ClientSecret: "gsec"},
	}
	reg := provider.NewRegistry(resolver, nil)
	reg.Register(provider.Google, func(cfg provider.Config, hc *http.Client) provider.Adapter {
		return &stubGoogle{Adapter: google.Factory(cfg, hc)}
	})

	stateCache := cachemem.New(time.Minute)

	return BuildHandler(Deps{
		Start: oauth.NewStartService(oauth.StartDeps{
			Registry:   reg,
			Resolver:   resolver,
			StateCache: stateCache,
		}),
		Callback: oauth.NewCallbackService(oauth.CallbackDeps{
			Registry:    reg,
			Resolver:    resolver,
			Credentials: creds,
		}),
		Credentials: creds,
		StateCache:  stateCache,
		JWTSecret:   []byte(testSecret),
	})
}

func bearer(t *testing.T, tenantID string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"tid": tenantID,
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doJSON(t *testing.T, h http.Handler, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPreflight_Bare200WithPermissiveCORS(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/social/start", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Empty(t, rec.Body.String())
}

func TestStart_RequiresBearer(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/social/start", "", map[string]string{
		"platform":    "google",
		"redirectUri": "https://app.example.com/oauth/cb",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out["error"])
}

func TestStartAndCallback_GoogleEndToEnd(t *testing.T) {
	h, st := newTestHandler(t)
	auth := bearer(t, "T1")

	// start
	rec := doJSON(t, h, http.MethodPost, "/api/social/start", auth, map[string]string{
		"platform":    "google",
		"redirectUri": "https://app.example.com/oauth/cb",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var started struct {
		AuthURL string `json:"authUrl"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	require.True(t, strings.HasPrefix(started.AuthURL, "https://accounts.google.com/o/oauth2/v2/auth?"), started.AuthURL)
	require.Contains(t, started.AuthURL, "access_type=offline")

	// callback
	rec = doJSON(t, h, http.MethodPost, "/api/social/callback", auth, map[string]string{
		"platform":    "google",
		"code":        "4/valid-code",
		"redirectUri": "https://app.example.com/oauth/cb",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var done struct {
		Success bool   `json:"success"`
		Name    string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &done))
	require.True(t, done.Success)
	require.Equal(t, "Google Business Profile", done.Name)

	// la credencial quedó persistida con token no vacío
	cred, err := st.GetCredential(context.Background(), "T1", provider.Google)
	require.NoError(t, err)
	require.NotEmpty(t, cred.AccessToken)

	// connections: identidad visible, tokens jamás
	rec = doJSON(t, h, http.MethodGet, "/api/social/connections", auth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "google_business")
	require.NotContains(t, rec.Body.String(), "ya29.test-token")
	require.NotContains(t, rec.Body.String(), "1//refresh")
}

func TestDispatchByAction(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/social", bearer(t, "T1"), map[string]string{
		"action":      "start",
		"platform":    "google",
		"redirectUri": "https://app.example.com/oauth/cb",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "authUrl")
}

func TestStart_UnsupportedPlatform(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/social/start", bearer(t, "T1"), map[string]string{
		"platform":    "twitter",
		"redirectUri": "https://app.example.com/cb",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var out struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "UNSUPPORTED_PROVIDER", out.Code)
	require.NotEmpty(t, out.Error)
}

// unwritableCreds simula una base caída al persistir.
type unwritableCreds struct {
	*storemem.Store
}

func (u *unwritableCreds) UpsertCredential(ctx context.Context, c store.Credential) error {
	return errors.New("write failed")
}

func TestCallback_StoreWriteFailureIs400(t *testing.T) {
	h := buildTestHandler(t, &unwritableCreds{storemem.New()})

	rec := doJSON(t, h, http.MethodPost, "/api/social/callback", bearer(t, "T1"), map[string]string{
		"platform":    "google",
		"code":        "4/valid-code",
		"redirectUri": "https://app.example.com/oauth/cb",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var out struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "PERSIST_FAILED", out.Code)
	require.NotEmpty(t, out.Error)
	// El token intercambiado jamás viaja en el error
	require.NotContains(t, rec.Body.String(), "ya29.test-token")
}

func TestCallback_MissingCode(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/social/callback", bearer(t, "T1"), map[string]string{
		"platform":    "google",
		"redirectUri": "https://app.example.com/cb",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "MISSING_FIELDS")
}

func TestStart_ProviderNotConfigured(t *testing.T) {
	h, _ := newTestHandler(t)
	// facebook no tiene factory ni credenciales en este handler, pero el
	// error de configuración gana porque se chequea antes del registry
	rec := doJSON(t, h, http.MethodPost, "/api/social/start", bearer(t, "T1"), map[string]string{
		"platform":    "facebook",
		"redirectUri": "https://app.example.com/cb",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "PROVIDER_NOT_CONFIGURED")
	require.Contains(t, rec.Body.String(), "FACEBOOK_CLIENT_ID")
}
