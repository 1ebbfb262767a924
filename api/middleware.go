package api

import (
	"context"
	"net/http"
	"strings"

	"shodesh/auth"
	"shodesh/verification"
)

type contextKey string

const actorKey contextKey = "actor"

// TokenVerifier resolves a bearer token into an account identity.
type TokenVerifier interface {
	VerifyToken(token string) (string, auth.Role, error)
}

// Authenticate extracts the bearer token, verifies it, and stores the actor
// on the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				respondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			userID, role, err := verifier.VerifyToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				respondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			actor := verification.Actor{ID: userID, Role: role}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
		})
	}
}

// RequireRole rejects requests whose actor does not carry the given role.
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := actorFrom(r.Context())
			if !ok || actor.Role != role {
				respondError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func actorFrom(ctx context.Context) (verification.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(verification.Actor)
	return actor, ok
}
