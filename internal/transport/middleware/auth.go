package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/pep299/research-blog-pipeline/internal/transport/response"
)

// Auth creates a bearer token middleware. An empty token disables the check.
func Auth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.Unauthorized(w)
				return
			}

			given := strings.TrimPrefix(authHeader, "Bearer ")
			if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
				response.Unauthorized(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
