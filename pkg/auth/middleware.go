package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Mann275/marketplace/pkg/httpx"
)

var ErrInvalidToken = errors.New("invalid token")

// Verifier validates a bearer token and resolves the session it was
// issued for. Token issuance belongs to the identity service and is not
// handled here.
type Verifier interface {
	Verify(token string) (Session, error)
}

// Middleware rejects requests without a valid bearer token and puts the
// resolved session into the request context.
func Middleware(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httpx.Error(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			session, err := v.Verify(token)
			if err != nil {
				httpx.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	return h[len(prefix):], true
}
