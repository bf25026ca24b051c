package server

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/configuration"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/logging"
)

// Run serves the API until ctx is cancelled.
func Run(ctx context.Context, conf *configuration.Configuration) error {
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		shutdown, err := logging.SetupTracing(ctx, conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.Endpoint)
		if err != nil {
			return errors.Wrap(err, "set up tracing")
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.WithError(err).Warn("tracing shutdown failed")
			}
		}()
		logger.Info("OpenTelemetry tracing enabled, exporting to " + conf.OpenTelemetry.Endpoint)
	}

	app, err := NewApplication(ctx, conf)
	if err != nil {
		return err
	}
	defer app.DB().Close()

	if conf.Database.AutoMigrate {
		if err := app.Migrations().Run(ctx); err != nil {
			return errors.Wrap(err, "run migrations")
		}
	}

	serverInstance, err := Default(&DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
	})
	if err != nil {
		return errors.Wrap(err, "create server")
	}
	logger.Infof("Listening on: %s", conf.SocketAddress)
	return serverInstance.Start(ctx, conf.SocketAddress)
}
