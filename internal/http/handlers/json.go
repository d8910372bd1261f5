package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/dropDatabas3/reviewflow/internal/http/errors"
)

const maxJSONBody = 64 << 10 // 64KB

// readBody valida Content-Type y lee el body completo (acotado). Devuelve
// false si ya escribió una respuesta de error.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	ct := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if ct != "" && !strings.Contains(ct, "application/json") {
		errors.WriteError(w, errors.ErrInvalidJSON.WithDetail("se requiere Content-Type: application/json"))
		return nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		errors.WriteError(w, errors.ErrInvalidJSON.WithDetail("no se pudo leer el body"))
		return nil, false
	}
	return body, true
}

// peekJSON lee el body y decodifica solo los campos de dst, dejando el raw
// disponible para una segunda decodificación (dispatch por action).
func peekJSON(w http.ResponseWriter, r *http.Request, dst any) ([]byte, bool) {
	body, ok := readBody(w, r)
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		errors.WriteError(w, errors.ErrInvalidJSON)
		return nil, false
	}
	return body, true
}

// decodeJSON decodifica un body ya leído. Devuelve false si ya escribió
// una respuesta de error.
func decodeJSON(w http.ResponseWriter, body []byte, dst any) bool {
	if len(body) == 0 {
		errors.WriteError(w, errors.ErrInvalidJSON.WithDetail("body vacío"))
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		errors.WriteError(w, errors.ErrInvalidJSON)
		return false
	}
	return true
}

// writeJSON serializa una respuesta exitosa.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
