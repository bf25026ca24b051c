package application

import (
	"context"
	"fmt"
	"io/fs"
	"reflect"
	"sort"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/eventbus"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/repo"
)

type ApplicationOptions struct {
	DB       *sqlx.DB
	EventBus eventbus.EventBus
	Logger   *logrus.Logger
}

func New(opts *ApplicationOptions) Application {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	bus := opts.EventBus
	if bus == nil {
		bus = eventbus.NewEventPublisher(logger)
	}
	return &application{
		db:             opts.DB,
		eventPublisher: bus,
		logger:         logger,
		controllers:    make(map[string]Controller),
		services:       make(map[reflect.Type]any),
		migrations:     &migrationManager{db: opts.DB, logger: logger},
	}
}

// LoadModules registers every module with app in order.
func LoadModules(app Application, modules ...Module) error {
	for _, m := range modules {
		if err := m.Register(app); err != nil {
			return errors.Wrapf(err, "register module %T", m)
		}
	}
	return nil
}

// application with a dynamically extendable service registry
type application struct {
	db             *sqlx.DB
	eventPublisher eventbus.EventBus
	logger         *logrus.Logger
	services       map[reflect.Type]any
	controllers    map[string]Controller
	middleware     []mux.MiddlewareFunc
	migrations     MigrationManager
}

func (app *application) DB() *sqlx.DB {
	return app.db
}

func (app *application) EventPublisher() eventbus.EventBus {
	return app.eventPublisher
}

func (app *application) Logger() *logrus.Logger {
	return app.logger
}

// Controllers are returned sorted by key so routes register deterministically.
func (app *application) Controllers() []Controller {
	keys := make([]string, 0, len(app.controllers))
	for k := range app.controllers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	controllers := make([]Controller, 0, len(keys))
	for _, k := range keys {
		controllers = append(controllers, app.controllers[k])
	}
	return controllers
}

func (app *application) Middleware() []mux.MiddlewareFunc {
	return app.middleware
}

func (app *application) Migrations() MigrationManager {
	return app.migrations
}

func (app *application) RegisterControllers(controllers ...Controller) {
	for _, c := range controllers {
		app.controllers[c.Key()] = c
	}
}

func (app *application) RegisterMiddleware(middleware ...mux.MiddlewareFunc) {
	app.middleware = append(app.middleware, middleware...)
}

// RegisterServices registers a new service in the application by its type
func (app *application) RegisterServices(services ...any) {
	for _, service := range services {
		serviceType := reflect.TypeOf(service).Elem()
		app.services[serviceType] = service
	}
}

// Service retrieves a service by its type
func (app *application) Service(service any) any {
	serviceType := reflect.TypeOf(service)
	svc, exists := app.services[serviceType]
	if !exists {
		panic(fmt.Sprintf("service %s not found", serviceType.Name()))
	}
	return svc
}

type migrationManager struct {
	db      *sqlx.DB
	logger  *logrus.Logger
	schemas []fs.FS
}

func (m *migrationManager) RegisterSchema(migrations ...fs.FS) {
	m.schemas = append(m.schemas, migrations...)
}

func (m *migrationManager) Run(ctx context.Context) error {
	for _, schema := range m.schemas {
		results, err := repo.Migrate(ctx, m.db, schema)
		if err != nil {
			return err
		}
		for _, r := range results {
			m.logger.WithFields(logrus.Fields{
				"version":  r.Source.Version,
				"duration": r.Duration,
			}).Info("applied migration")
		}
	}
	return nil
}

func (m *migrationManager) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	var out []*goose.MigrationStatus
	for _, schema := range m.schemas {
		st, err := repo.MigrationStatus(ctx, m.db, schema)
		if err != nil {
			return nil, err
		}
		out = append(out, st...)
	}
	return out, nil
}

// Rollback undoes the latest migration of the last registered schema.
func (m *migrationManager) Rollback(ctx context.Context) error {
	if len(m.schemas) == 0 {
		return nil
	}
	r, err := repo.Rollback(ctx, m.db, m.schemas[len(m.schemas)-1])
	if err != nil {
		return err
	}
	if r != nil && r.Source != nil {
		m.logger.WithField("version", r.Source.Version).Info("rolled back migration")
	}
	return nil
}
