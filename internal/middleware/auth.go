package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/errandsexpress/backend/internal/models"
)

type contextKey string

const ctxActorKey contextKey = "actor"

// TokenValidator is the auth service subset the middleware needs.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (models.Actor, error)
}

// Auth authenticates requests by validating the Bearer JWT and setting the
// resulting actor (user id + role) into request context.
func Auth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				errJSON(w, http.StatusUnauthorized, "missing or malformed Authorization header")
				return
			}
			actor, err := tokens.ValidateToken(r.Context(), raw)
			if err != nil {
				errJSON(w, http.StatusUnauthorized, "invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), ctxActorKey, &actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a handler to the given roles. Must run after Auth.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromCtx(r.Context())
			if actor == nil {
				errJSON(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			errJSON(w, http.StatusForbidden, "forbidden")
		})
	}
}

// ActorFromCtx returns the authenticated actor or nil.
func ActorFromCtx(ctx context.Context) *models.Actor {
	actor, _ := ctx.Value(ctxActorKey).(*models.Actor)
	return actor
}

// WithActor returns a context carrying the given actor.
func WithActor(ctx context.Context, actor *models.Actor) context.Context {
	return context.WithValue(ctx, ctxActorKey, actor)
}

func errJSON(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
