package server

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/application"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/configuration"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/eventbus"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/repo"
)

// NewApplication opens the database and registers every module. Callers own
// the returned application's DB handle.
func NewApplication(ctx context.Context, conf *configuration.Configuration) (application.Application, error) {
	dialect, err := repo.ParseDialect(conf.Database.Driver)
	if err != nil {
		return nil, err
	}
	if dialect == repo.SQLite {
		if err := os.MkdirAll(filepath.Dir(conf.Database.Path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create database directory")
		}
	}
	db, err := repo.Open(ctx, dialect, conf.Database.DSN(), repo.PoolOptions{
		MaxOpenConns:    conf.Database.MaxOpenConns,
		MaxIdleConns:    conf.Database.MaxIdleConns,
		ConnMaxLifetime: conf.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	logger := conf.Logger()
	app := application.New(&application.ApplicationOptions{
		DB:       db,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	coreOpts, err := core.OptionsFromConfig(conf)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := modules.Load(app, core.NewModule(coreOpts)); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "load modules")
	}
	return app, nil
}
