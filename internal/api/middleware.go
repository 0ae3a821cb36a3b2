// Package api implements the Kanbo REST API using chi.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/starford/kanbo/internal/board"
)

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry a valid "Authorization: Bearer <token>" header.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type actorKey struct{}

// ActorMiddleware resolves the acting user from the X-User-ID header (and the
// optional X-User-Name) and stores it in the request context. Requests
// without a positive numeric id are rejected with 401.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusUnauthorized, errorBody("X-User-ID header is required"))
			return
		}
		actor := board.User{ID: id, Name: r.Header.Get("X-User-Name")}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

// actorFrom returns the user stored by ActorMiddleware.
func actorFrom(ctx context.Context) (board.User, bool) {
	u, ok := ctx.Value(actorKey{}).(board.User)
	return u, ok
}
