package auth

import (
	"log"
	"net/http"
	"strings"
)

// Authenticate attaches the bearer token's identity to the request context.
// Requests without a valid token pass through anonymous; handlers decide
// whether that is acceptable.
func Authenticate(issuer *TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := issuer.Parse(strings.TrimSpace(raw))
			if err != nil {
				log.Printf("[auth] rejected token: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
