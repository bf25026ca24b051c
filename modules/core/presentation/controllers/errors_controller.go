package controllers

import (
	"net/http"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/httpapi"
)

// NotFound answers unknown routes with the JSON error envelope.
func NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusNotFound, "ROUTE_NOT_FOUND", "route not found",
			map[string]string{"path": r.URL.Path})
	})
}

func MethodNotAllowed() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed",
			map[string]string{"path": r.URL.Path, "method": r.Method})
	})
}
