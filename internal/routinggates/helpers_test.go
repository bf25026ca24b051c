package routinggates

import (
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	internalserver "github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/internal/server"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/configuration"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/itf"
)

// buildRouter wires the core module behind the same middleware stack the
// server binary uses.
func buildRouter(t *testing.T) *mux.Router {
	t.Helper()
	env := itf.NewTestContext().Build(t)
	conf := &configuration.Configuration{
		RequestIDHeader: "X-Request-ID",
		RealIPHeader:    "X-Real-IP",
		CORSOrigins:     []string{"http://localhost:3000"},
	}
	srv, err := internalserver.Default(&internalserver.DefaultOptions{
		Logger:        env.App.Logger(),
		Configuration: conf,
		Application:   env.App,
	})
	require.NoError(t, err)
	return srv.Router()
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Meta    map[string]string `json:"meta"`
}
