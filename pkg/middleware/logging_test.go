package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/composables"
)

func TestWithLogger(t *testing.T) {
	t.Parallel()
	logger, hook := test.NewNullLogger()
	var params *composables.Params
	h := WithLogger(logger, DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := composables.UseParams(r.Context())
		require.True(t, ok)
		params = p
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", nil)
	req.Header.Set("X-Request-ID", "req-1")
	req.Header.Set("X-Real-IP", "203.0.113.9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "203.0.113.9", params.IP)
	assert.Equal(t, "req-1", params.RequestID)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "request completed", entry.Message)
	assert.Equal(t, http.StatusCreated, entry.Data["status-code"])
	assert.Equal(t, "req-1", entry.Data["request-id"])
}

func TestWithLogger_RecoversPanic(t *testing.T) {
	t.Parallel()
	logger, hook := test.NewNullLogger()
	h := WithLogger(logger, DefaultLoggerOptions())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INTERNAL"`)
	assert.NotContains(t, rec.Body.String(), "boom")
	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, logrus.ErrorLevel, hook.AllEntries()[0].Level)
}
