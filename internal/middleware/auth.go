package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"giftstudio/internal/auth"
	"giftstudio/internal/httputil"
)

// publicPaths skip token verification
var publicPaths = map[string]bool{
	"/health": true,
}

// AuthMiddleware requires a valid bearer token on every non-public route and
// stores the editor id in the request context
func AuthMiddleware(verifier auth.JWTVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				logger.Debug("request rejected", "path", r.URL.Path, "error", err)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, httputil.WithEditorID(r, claims.EditorID()))
		})
	}
}
