package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/rtepass1986/reallifeberlin/internal/service"
)

type Authenticator interface {
	Authenticate(token string) (service.Actor, error)
}

type actorKey struct{}

func WithActor(ctx context.Context, a service.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFrom(ctx context.Context) (service.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(service.Actor)
	return a, ok
}

// RequireAuth rejects requests without a valid bearer token and puts the
// caller into the request context.
func RequireAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			actor, err := authn.Authenticate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, service.ErrUnauthorized.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func actorOrUnauthorized(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	a, ok := ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, service.ErrUnauthorized.Error())
	}
	return a, ok
}
