package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/anish1206/green-tech/internal/domain/identity"
)

// Authenticate attaches the verified caller to the request context.
// It never rejects: handlers decide what an anonymous caller may do.
func Authenticate(v identity.Verifier, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" || v == nil {
				next.ServeHTTP(w, r)
				return
			}
			id, err := v.Verify(r.Context(), token)
			if err != nil || !id.Verified() {
				log.Debug("token verification failed", zap.String("path", r.URL.Path), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

// BearerToken extracts the token from the Authorization header.
// Supports both "Bearer <token>" and "<token>" formats.
func BearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) >= 7 && strings.EqualFold(auth[:7], "bearer ") {
		auth = auth[7:]
	}
	return strings.TrimSpace(auth)
}
