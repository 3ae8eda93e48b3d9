package member

import (
	"net/http"
	"strings"

	"github.com/nightjarhq/nightjar-backend/internal/actor"
)

// Authenticator resolves Bearer tokens to actors on every request. Routes
// stay reachable without a token (registration, login); handlers that need
// an actor check the context themselves.
func Authenticator(service Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				token := strings.TrimPrefix(header, "Bearer ")
				if m, err := service.Authenticate(r.Context(), token); err == nil {
					a := actor.Actor{ID: m.ID.String(), Role: m.Role}
					r = r.WithContext(actor.WithActor(r.Context(), a))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
