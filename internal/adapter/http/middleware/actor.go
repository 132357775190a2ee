package middleware

import (
	"net/http"
	"strconv"

	"github.com/iho/coster/internal/domain"
)

// ActorHeader names the tab user a request acts for.
const ActorHeader = "X-User-ID"

// Actor puts the user from ActorHeader into the request context. Requests
// without the header pass through unchanged.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(ActorHeader)
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := strconv.ParseInt(header, 10, 64)
		if err != nil || userID < 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid X-User-ID header"}`))
			return
		}

		ctx := domain.WithActor(r.Context(), domain.UserID(userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
