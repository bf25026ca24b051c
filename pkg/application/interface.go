package application

import (
	"context"
	"io/fs"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/eventbus"
)

type Controller interface {
	Register(r *mux.Router)
	Key() string
}

type Module interface {
	Register(app Application) error
}

type MigrationManager interface {
	RegisterSchema(migrations ...fs.FS)
	Run(ctx context.Context) error
	Status(ctx context.Context) ([]*goose.MigrationStatus, error)
	Rollback(ctx context.Context) error
}

// Application is the registry modules plug their migrations, services and
// controllers into.
type Application interface {
	DB() *sqlx.DB
	EventPublisher() eventbus.EventBus
	Logger() *logrus.Logger
	Controllers() []Controller
	Middleware() []mux.MiddlewareFunc
	Migrations() MigrationManager
	RegisterControllers(controllers ...Controller)
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	RegisterServices(services ...any)
	Service(service any) any
}
