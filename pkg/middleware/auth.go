package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/composables"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/constants"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/httpapi"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
)

// TokenResolver turns a bearer token into a tenant context.
type TokenResolver interface {
	Resolve(raw string) (tenancy.Context, error)
}

// Authenticate resolves the bearer token once per request. A missing or
// invalid token leaves the request anonymous; it never fails the request.
func Authenticate(resolver TokenResolver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc := tenancy.Anonymous
			if raw, ok := bearerToken(r); ok {
				resolved, err := resolver.Resolve(raw)
				if err != nil {
					composables.UseLogger(r.Context()).WithError(err).Debug("bearer token rejected")
				} else {
					tc = resolved
				}
			}
			next.ServeHTTP(w, r.WithContext(tenancy.WithContext(r.Context(), tc)))
		})
	}
}

// RequireAuthenticated answers 401 for anonymous requests.
func RequireAuthenticated() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !tenancy.Use(r.Context()).IsUser() {
				w.Header().Set("WWW-Authenticate", "Bearer")
				_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(constants.AuthorizationHeader)
	if len(h) <= len(constants.BearerPrefix) || !strings.EqualFold(h[:len(constants.BearerPrefix)], constants.BearerPrefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(constants.BearerPrefix):]), true
}
