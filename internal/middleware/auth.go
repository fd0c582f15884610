package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dreamtumulus/andun/internal/model/subject"
	"github.com/dreamtumulus/andun/internal/service/auth"
	"github.com/dreamtumulus/andun/pkg/utils"
)

type contextKey string

const identityKey contextKey = "identity"

// Authenticate resolves the bearer token into the request context.
func Authenticate(authSvc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				utils.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			user, err := authSvc.Resolve(token)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "invalid session token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects non-admin identities.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := IdentityFrom(r.Context())
		if !ok || user.Role != subject.RoleAdmin {
			utils.RespondError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFrom extracts the authenticated identity from the context.
func IdentityFrom(ctx context.Context) (subject.User, bool) {
	user, ok := ctx.Value(identityKey).(subject.User)
	return user, ok
}
