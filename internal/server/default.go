package server

import (
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"

	"github.com/dchoinie/church-membership-app-sub003/modules/core/presentation/controllers"
	"github.com/dchoinie/church-membership-app-sub003/pkg/application"
	"github.com/dchoinie/church-membership-app-sub003/pkg/configuration"
	"github.com/dchoinie/church-membership-app-sub003/pkg/constants"
	"github.com/dchoinie/church-membership-app-sub003/pkg/middleware"
	"github.com/dchoinie/church-membership-app-sub003/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

// Default assembles the HTTP server with the standard middleware chain.
// Order matters: the logger middleware opens the root span everything
// downstream attaches to, and tenant resolution needs the app and pool
// already in the context.
func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	conf := options.Configuration

	chain := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, middleware.DefaultLoggerOptions()),

		middleware.TracedMiddleware("provide"),
		middleware.Provide(constants.AppKey, app),
		middleware.Provide(constants.PoolKey, options.Pool),

		middleware.TracedMiddleware("cors"),
		middleware.Cors(conf.Origin),
	}

	if conf.RateLimit.Enabled {
		chain = append(chain,
			middleware.TracedMiddleware("rateLimit"),
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: conf.RateLimit.GlobalRPS,
				Store:             rateLimitStore(conf.RateLimit, options.Logger),
			}),
		)
	}

	chain = append(chain,
		middleware.TracedMiddleware("requestParams"),
		middleware.RequestParams(),

		middleware.TracedMiddleware("tenant"),
		middleware.RequireTenantFromHost(app, "/health", conf.Prometheus.Path),

		middleware.TracedMiddleware("i18n"),
		middleware.ProvideLocalizer(app),
	)

	app.RegisterMiddleware(chain...)

	return server.NewHTTPServer(
		app,
		controllers.NotFound(),
		controllers.MethodNotAllowed(),
	), nil
}

// rateLimitStore returns the redis-backed store when configured and
// reachable, otherwise in-process counters.
func rateLimitStore(conf configuration.RateLimitOptions, logger *logrus.Logger) limiter.Store {
	if conf.Storage == "redis" {
		store, err := middleware.NewRedisStore(conf.RedisURL)
		if err == nil {
			return store
		}
		logger.WithError(err).Warn("redis rate limit store unavailable, using memory store")
	}
	return middleware.NewMemoryStore()
}
