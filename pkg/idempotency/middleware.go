package idempotency

import (
	"log/slog"
	"net/http"

	"github.com/Mann275/marketplace/pkg/auth"
	"github.com/Mann275/marketplace/pkg/httpx"
)

// Middleware rejects a request whose Idempotency-Key header was already
// seen by the same user within the store TTL. Requests without the
// header pass through untouched.
func Middleware(log *slog.Logger, store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			session, _ := auth.SessionFrom(r.Context())
			seen, err := store.Seen(r.Context(), RequestKey(session.UserID, key))
			if err != nil {
				// Availability over dedup: let the request through.
				log.Error("idempotency check failed", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if seen {
				httpx.Error(w, http.StatusConflict, "duplicate request")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
