// Package itf builds integration test environments: a migrated temporary
// SQLite database with the modules wired exactly as in production.
package itf

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/services"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/application"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/composables"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/eventbus"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/middleware"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/server"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/tenancy"
)

const TestJWTSecret = "itf-test-secret-at-least-32-bytes-long"

// TestContext provides a fluent API for building test environments
type TestContext struct {
	options   *core.ModuleOptions
	configure []func(*core.ModuleOptions)
	logger    *logrus.Logger
}

func NewTestContext() *TestContext {
	return &TestContext{options: DefaultModuleOptions()}
}

// DefaultModuleOptions keeps bcrypt cheap and token lifetimes long enough
// for slow test runs.
func DefaultModuleOptions() *core.ModuleOptions {
	return &core.ModuleOptions{
		Tokens: services.TokenConfig{
			Secret:     []byte(TestJWTSecret),
			Issuer:     "itf",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
		},
		PasswordCost: bcrypt.MinCost,
		InviteTTL:    time.Hour,
		Concurrency:  4,
	}
}

// WithOptions adjusts the core module options before the module is built.
func (tc *TestContext) WithOptions(fn func(opts *core.ModuleOptions)) *TestContext {
	tc.configure = append(tc.configure, fn)
	return tc
}

func (tc *TestContext) WithLogger(logger *logrus.Logger) *TestContext {
	tc.logger = logger
	return tc
}

// Build creates the database, registers the core module and migrates.
func (tc *TestContext) Build(tb testing.TB) *TestEnvironment {
	tb.Helper()

	for _, fn := range tc.configure {
		fn(tc.options)
	}
	logger := tc.logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	db := NewDB(tb)
	bus := eventbus.NewEventPublisher(logger)
	app := application.New(&application.ApplicationOptions{
		DB:       db,
		EventBus: bus,
		Logger:   logger,
	})
	if err := application.LoadModules(app, core.NewModule(tc.options)); err != nil {
		tb.Fatal(err)
	}
	if err := app.Migrations().Run(context.Background()); err != nil {
		tb.Fatal(err)
	}

	return &TestEnvironment{
		Ctx: composables.WithDB(context.Background(), db),
		DB:  db,
		App: app,
		Bus: bus,
	}
}

// TestEnvironment contains all test dependencies
type TestEnvironment struct {
	Ctx context.Context
	DB  *sqlx.DB
	App application.Application
	Bus eventbus.EventBus
}

// Service retrieves a service from the application
func (te *TestEnvironment) Service(service any) any {
	return te.App.Service(service)
}

// GetService is a generic helper that retrieves and casts a service
func GetService[T any](te *TestEnvironment) *T {
	var zero T
	return te.App.Service(zero).(*T)
}

// As returns the environment context acting as tc.
func (te *TestEnvironment) As(tc tenancy.Context) context.Context {
	return tenancy.WithContext(te.Ctx, tc)
}

// Handler serves every registered controller the way the server does,
// minus CORS and gzip.
func (te *TestEnvironment) Handler() http.Handler {
	logger := te.App.Logger()
	te.App.RegisterMiddleware(
		middleware.WithLogger(logger, middleware.DefaultLoggerOptions()),
		middleware.ProvideDB(te.DB),
	)
	s := server.NewHTTPServer(te.App, http.NotFoundHandler(), http.NotFoundHandler())
	return s.Router()
}
