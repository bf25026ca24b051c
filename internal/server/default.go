package server

import (
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/presentation/controllers"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/application"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/configuration"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/middleware"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	loggerOpts := middleware.DefaultLoggerOptions()
	loggerOpts.RequestIDHeader = conf.RequestIDHeader
	loggerOpts.RealIPHeader = conf.RealIPHeader

	// WithLogger opens the root span of every request.
	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, loggerOpts),

		middleware.TracedMiddleware("database"),
		middleware.ProvideDB(app.DB()),

		middleware.TracedMiddleware("cors"),
		middleware.Cors(conf.CORSOrigins...),
	}
	app.RegisterMiddleware(middlewares...)

	serverInstance := server.NewHTTPServer(
		app,
		controllers.NotFound(),
		controllers.MethodNotAllowed(),
	)
	return serverInstance, nil
}
