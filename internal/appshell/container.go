package appshell

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/klwxsrx/go-app-shell/internal/appshell/authapi"
	"github.com/klwxsrx/go-app-shell/pkg/auth"
	"github.com/klwxsrx/go-app-shell/pkg/auth/persistence"
	"github.com/klwxsrx/go-app-shell/pkg/cmd"
	pkghttp "github.com/klwxsrx/go-app-shell/pkg/http"
	"github.com/klwxsrx/go-app-shell/pkg/lazy"
	"github.com/klwxsrx/go-app-shell/pkg/log"
	"github.com/klwxsrx/go-app-shell/pkg/metric"
	"github.com/klwxsrx/go-app-shell/pkg/observability"
	"github.com/klwxsrx/go-app-shell/pkg/sql"
)

const (
	RequestIDHeader = "X-Request-Id"

	metricsNamespace = "appshell"
	tracerName       = "github.com/klwxsrx/go-app-shell"
)

type Container struct {
	Config   Config
	Logger   lazy.Loader[log.Logger]
	Registry lazy.Loader[*prometheus.Registry]
	Metrics  lazy.Loader[metric.Metrics]
	Observer lazy.Loader[observability.Observer]
	Session  lazy.Loader[*auth.Session]
	Client   lazy.Loader[*pkghttp.Client]

	sqlConnection lazy.Loader[sql.Connection]
	redisClient   lazy.Loader[redis.UniversalClient]
}

// NewContainer only declares the providers. Nothing is connected until a value is loaded.
func NewContainer(ctx context.Context, config Config) *Container {
	logger := loggerProvider(config)
	registry := registryProvider()
	metrics := metricsProvider(registry)
	observer := observerProvider(logger)
	transport := transportProvider(config, observer, metrics, logger)

	sqlConnection := sqlConnectionProvider(ctx, config, logger)
	redisClient := redisClientProvider(config)
	sessionPersistence := persistenceProvider(ctx, config, sqlConnection, redisClient)

	session := sessionProvider(ctx, config, transport, sessionPersistence, metrics, logger)

	return &Container{
		Config:        config,
		Logger:        logger,
		Registry:      registry,
		Metrics:       metrics,
		Observer:      observer,
		Session:       session,
		Client:        clientProvider(config, transport, session, logger),
		sqlConnection: sqlConnection,
		redisClient:   redisClient,
	}
}

func (c *Container) Close(ctx context.Context) {
	if cmd.HandleAppPanic(ctx, c.Logger.MustLoad()) {
		defer os.Exit(1)
	}

	c.redisClient.IfLoaded(func(client redis.UniversalClient) {
		err := client.Close()
		if err != nil {
			c.Logger.MustLoad().WithError(err).Error(ctx, "failed to close redis client")
		}
	})
	c.sqlConnection.IfLoaded(func(conn sql.Connection) { conn.Close(ctx) })
}

func loggerProvider(config Config) lazy.Loader[log.Logger] {
	return lazy.New(func() (log.Logger, error) {
		return log.New(config.LogLevel), nil
	})
}

func registryProvider() lazy.Loader[*prometheus.Registry] {
	return lazy.New(func() (*prometheus.Registry, error) {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		return registry, nil
	})
}

func metricsProvider(registry lazy.Loader[*prometheus.Registry]) lazy.Loader[metric.Metrics] {
	return lazy.New(func() (metric.Metrics, error) {
		return metric.NewPrometheus(registry.MustLoad(), metric.WithNamespace(metricsNamespace)), nil
	})
}

func observerProvider(logger lazy.Loader[log.Logger]) lazy.Loader[observability.Observer] {
	return lazy.New(func() (observability.Observer, error) {
		return observability.New(
			observability.WithFieldsLogging(logger.MustLoad(), observability.LogFieldRequestID),
		), nil
	})
}

func transportProvider(
	config Config,
	observer lazy.Loader[observability.Observer],
	metrics lazy.Loader[metric.Metrics],
	logger lazy.Loader[log.Logger],
) lazy.Loader[pkghttp.Transport] {
	return lazy.New(func() (pkghttp.Transport, error) {
		return pkghttp.NewRESTYTransport(
			pkghttp.WithDestination("api", config.API.BaseURL),
			pkghttp.WithTimeout(config.API.Timeout),
			pkghttp.WithRequestObservability(observer.MustLoad(), RequestIDHeader),
			pkghttp.WithRequestLogging(logger.MustLoad(), log.LevelDebug, log.LevelWarn),
			pkghttp.WithRequestMetrics(metrics.MustLoad()),
		), nil
	})
}

func sqlConnectionProvider(
	ctx context.Context,
	config Config,
	logger lazy.Loader[log.Logger],
) lazy.Loader[sql.Connection] {
	return lazy.New(func() (sql.Connection, error) {
		sqlConfig := config.Session.SQL
		return sql.NewConnection(ctx, &sqlConfig, logger.MustLoad())
	})
}

func redisClientProvider(config Config) lazy.Loader[redis.UniversalClient] {
	return lazy.New(func() (redis.UniversalClient, error) {
		return redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{config.Session.RedisAddress},
		}), nil
	})
}

func persistenceProvider(
	ctx context.Context,
	config Config,
	sqlConnection lazy.Loader[sql.Connection],
	redisClient lazy.Loader[redis.UniversalClient],
) lazy.Loader[auth.Persistence] {
	return lazy.New(func() (auth.Persistence, error) {
		switch config.Session.Store {
		case SessionStoreMemory:
			return persistence.NewMemory(), nil
		case SessionStoreFile:
			return persistence.NewFile(config.Session.FilePath), nil
		case SessionStoreRedis:
			client, err := redisClient.Load()
			if err != nil {
				return nil, err
			}
			return persistence.NewRedis(client, config.Session.RedisKey, config.Session.RedisTTL), nil
		case SessionStorePostgres:
			conn, err := sqlConnection.Load()
			if err != nil {
				return nil, err
			}

			store := persistence.NewSQL(conn.Client(), config.Session.SQLKey)
			err = store.Migrate(ctx)
			if err != nil {
				return nil, err
			}
			return store, nil
		default:
			return nil, fmt.Errorf("unknown session store %q", config.Session.Store)
		}
	})
}

// apiClient serves the session's own calls, it has no authenticator so that refresh cannot recurse.
func apiClient(transport pkghttp.Transport, logger log.Logger) *pkghttp.Client {
	return pkghttp.NewClient(transport,
		pkghttp.WithDefaultAuth(false),
		pkghttp.WithLogger(logger),
		pkghttp.WithTracing(otel.Tracer(tracerName)),
		pkghttp.WithErrorLogging(logger),
	)
}

func sessionProvider(
	ctx context.Context,
	config Config,
	transport lazy.Loader[pkghttp.Transport],
	sessionPersistence lazy.Loader[auth.Persistence],
	metrics lazy.Loader[metric.Metrics],
	logger lazy.Loader[log.Logger],
) lazy.Loader[*auth.Session] {
	return lazy.New(func() (*auth.Session, error) {
		store, err := sessionPersistence.Load()
		if err != nil {
			return nil, fmt.Errorf("session persistence: %w", err)
		}

		api := authapi.New(
			apiClient(transport.MustLoad(), logger.MustLoad()),
			config.API.LoginPath,
			config.API.RefreshPath,
		)
		session := auth.NewSession(api, store, auth.WithLogger(logger.MustLoad()))
		session.Subscribe(sessionEventListener(metrics.MustLoad(), logger.MustLoad()))

		err = session.Restore(ctx)
		if err != nil {
			return nil, err
		}

		auth.SetDefault(session)
		return session, nil
	})
}

func clientProvider(
	config Config,
	transport lazy.Loader[pkghttp.Transport],
	session lazy.Loader[*auth.Session],
	logger lazy.Loader[log.Logger],
) lazy.Loader[*pkghttp.Client] {
	return lazy.New(func() (*pkghttp.Client, error) {
		s, err := session.Load()
		if err != nil {
			return nil, err
		}

		return pkghttp.NewClient(transport.MustLoad(),
			pkghttp.WithAuthenticator(s),
			pkghttp.WithDefaultAutoRefreshToken(true),
			pkghttp.WithDefaultRetry(config.API.Retry),
			pkghttp.WithLogger(logger.MustLoad()),
			pkghttp.WithTracing(otel.Tracer(tracerName)),
			pkghttp.WithErrorLogging(logger.MustLoad()),
		), nil
	})
}

func sessionEventListener(metrics metric.Metrics, logger log.Logger) func(context.Context, auth.Event) {
	return func(ctx context.Context, evt auth.Event) {
		metrics.With(metric.Labels{"type": string(evt.Type)}).Increment("auth_events_total")

		eventLogger := logger.WithField("authEvent", string(evt.Type))
		if evt.User != nil {
			eventLogger = eventLogger.WithField("userID", string(evt.User.ID))
		}
		if evt.Err != nil {
			eventLogger.WithError(evt.Err).Warn(ctx, "auth session event")
			return
		}
		eventLogger.Info(ctx, "auth session event")
	}
}
