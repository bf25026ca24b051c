package routinggates

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// publicBaseline lists every route reachable without a bearer token. Adding
// a public route means adding it here on purpose.
var publicBaseline = []string{
	"GET /api/v1/public/tenants/availability",
	"GET /api/v1/public/tenants/{slug}",
	"GET /health",
	"POST /api/v1/auth/federated",
	"POST /api/v1/auth/invites/accept",
	"POST /api/v1/auth/login",
	"POST /api/v1/auth/refresh",
	"POST /api/v1/auth/register",
}

type endpoint struct {
	method   string
	template string
}

func (e endpoint) String() string {
	return e.method + " " + e.template
}

func TestExposureBaseline_PublicRoutes(t *testing.T) {
	t.Parallel()
	router := buildRouter(t)

	var public []string
	for _, ep := range collectEndpoints(t, router) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(ep.method, concretePath(ep.template), nil))
		if rr.Code != http.StatusUnauthorized {
			public = append(public, ep.String())
		}
	}
	sort.Strings(public)
	assert.Equal(t, publicBaseline, public)
}

func TestExposureBaseline_VersionedAPI(t *testing.T) {
	t.Parallel()
	router := buildRouter(t)

	for _, ep := range collectEndpoints(t, router) {
		if ep.template == "/health" {
			continue
		}
		assert.True(t, strings.HasPrefix(ep.template, "/api/v1/"), "unversioned route %s", ep)
	}
}

func collectEndpoints(t *testing.T, router *mux.Router) []endpoint {
	t.Helper()

	var out []endpoint
	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		methods, err := route.GetMethods()
		if err != nil {
			return nil
		}
		tmpl, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		for _, m := range methods {
			out = append(out, endpoint{method: m, template: tmpl})
		}
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	return out
}

func concretePath(template string) string {
	r := strings.NewReplacer("{id}", uuid.NewString(), "{slug}", "acme-pharmacy")
	return r.Replace(template)
}
