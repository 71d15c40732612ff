package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/ldi/jobsite/internal/logging"
	"github.com/ldi/jobsite/pkg/models"
)

type actorKey struct{}

func WithActor(ctx context.Context, a models.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFrom(ctx context.Context) (models.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(models.Actor)
	return a, ok
}

// Middleware authenticates the bearer token and stores the actor in the
// request context. onError writes the rejection.
func (s *Service) Middleware(onError func(w http.ResponseWriter, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				logging.Logger.Warnf("Event ID: AUTH_MISSING_HEADER, Description: missing bearer token for %s %s", r.Method, r.URL.Path)
				onError(w, models.ErrUnauthorized)
				return
			}

			actor, err := s.Authenticate(r.Context(), token)
			if err != nil {
				logging.Logger.Warnf("Event ID: AUTH_INVALID_TOKEN, Description: %s %s: %v", r.Method, r.URL.Path, err)
				onError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
