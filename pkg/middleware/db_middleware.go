package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/composables"
)

// ProvideDB makes db available to every handler. Transactions are opened by
// services, never per request.
func ProvideDB(db *sqlx.DB) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(composables.WithDB(r.Context(), db)))
		})
	}
}
