package controllers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/services"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/application"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/middleware"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
)

const (
	apiPrefix    = "/api/v1"
	defaultLimit = 50
	maxLimit     = 200
)

var errInvalidID = serrors.Validation("INVALID_ID", "invalid identifier").WithField("id", "uuid")

// protected returns the middleware chain of routes that need a signed in user.
func protected(app application.Application) []mux.MiddlewareFunc {
	tokens := app.Service(services.TokenService{}).(*services.TokenService)
	return []mux.MiddlewareFunc{
		middleware.Authenticate(tokens),
		middleware.RequireAuthenticated(),
	}
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

// paging reads limit/offset query parameters, clamping out of range values.
func paging(r *http.Request) (int, int) {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, err := strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
