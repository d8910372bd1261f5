package middlewares

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/reviewflow/internal/http/errors"
)

// RequireAuth valida Authorization: Bearer <JWT> (HMAC) y guarda el tenant
// ID (claim "tid") en el contexto. Si el token es inválido o no está
// presente, responde 401.
func RequireAuth(secret []byte) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := strings.TrimSpace(r.Header.Get("Authorization"))
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="missing bearer token"`)
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			raw := strings.TrimSpace(ah[len("Bearer "):])

			claims, err := parseHMAC(raw, secret)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="`+err.Error()+`"`)
				errors.WriteError(w, errors.ErrTokenInvalid.WithDetail(err.Error()))
				return
			}

			tid, _ := claims["tid"].(string)
			if tid == "" {
				// Sin tenant no hay a quién atribuir la conexión
				errors.WriteError(w, errors.ErrTokenInvalid.WithDetail("missing tid claim"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithTenantID(r.Context(), tid)))
		})
	}
}

// parseHMAC valida firma HS256 y claims temporales (exp/nbf).
func parseHMAC(raw string, secret []byte) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
