package http

import (
	"context"
	"net/http"
	"strings"

	"hogar/internal/auth"
	"hogar/internal/core"
)

type contextKey string

const userKey contextKey = "user"

// requireAuth resolves the bearer token to a user and stores it on the
// request context. Missing or bad tokens answer 401.
func requireAuth(authSvc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
				return
			}

			user, err := authSvc.VerifyToken(r.Context(), token)
			if err != nil {
				respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or expired token"})
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// currentUser returns the authenticated user stored by requireAuth.
func currentUser(ctx context.Context) *core.User {
	user, _ := ctx.Value(userKey).(*core.User)
	return user
}
