package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// operatorKeyHeader carries the static operator key for the admin surface.
const operatorKeyHeader = "X-Arena-Key"

// Auth returns middleware guarding the operator endpoints (void, resume,
// reconciliation). The key arrives either as a Bearer token or in the
// X-Arena-Key header. An empty configured key disables the guard, which is
// the standalone default.
func Auth(operatorKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if operatorKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := operatorKeyFrom(r)
			if key == "" {
				writeUnauthorized(w, "missing operator key")
				return
			}

			// Constant-time compare; the key is a static secret.
			if subtle.ConstantTimeCompare([]byte(key), []byte(operatorKey)) != 1 {
				writeUnauthorized(w, "invalid operator key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// operatorKeyFrom pulls the key from Authorization: Bearer or X-Arena-Key.
func operatorKeyFrom(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(r.Header.Get(operatorKeyHeader))
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
