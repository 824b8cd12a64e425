package server

import (
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// extractToken pulls the client credential from the request. The
// Authorization header wins when present and must carry a Bearer token; the
// X-API-Key header and the api_key query parameter are fallbacks, in that
// order.
func extractToken(r *http.Request) string {
	if authorization := r.Header.Get("Authorization"); authorization != "" {
		if !strings.HasPrefix(authorization, bearerPrefix) {
			return ""
		}
		return strings.TrimPrefix(authorization, bearerPrefix)
	}

	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}

	return r.URL.Query().Get("api_key")
}

// authMiddleware rejects requests whose credential does not match the
// configured API key. An empty configured key is a deployment mistake and
// reported as such rather than treated as "no auth".
func authMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				writeError(w, http.StatusInternalServerError, codeMisconfigured, "service misconfigured")
				return
			}
			token := extractToken(r)
			if token == "" || token != apiKey {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
