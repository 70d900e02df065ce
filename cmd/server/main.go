package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/dchoinie/church-membership-app-sub003/internal/server"
	"github.com/dchoinie/church-membership-app-sub003/modules"
	"github.com/dchoinie/church-membership-app-sub003/pkg/application"
	"github.com/dchoinie/church-membership-app-sub003/pkg/configuration"
	"github.com/dchoinie/church-membership-app-sub003/pkg/eventbus"
	"github.com/dchoinie/church-membership-app-sub003/pkg/logging"
	"github.com/dchoinie/church-membership-app-sub003/pkg/metrics"
	"github.com/dchoinie/church-membership-app-sub003/pkg/outbox"
	eventbusdispatcher "github.com/dchoinie/church-membership-app-sub003/pkg/outbox/dispatchers/eventbus"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		stopTracing := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer stopTracing()
		logger.WithField("tempo_url", conf.OpenTelemetry.TempoURL).Info("tracing enabled")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		Bundle:   application.LoadBundle(),
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if err := app.Migrations().Run(context.Background()); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}

	startOutboxBackground(conf, pool, logger, app.EventPublisher())

	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := serverInstance.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("server shutdown failed")
		}
	}()

	log.Printf("Listening on: %s\n", conf.Origin)
	if err := serverInstance.Start(conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

// startOutboxBackground launches the relay and cleaner loops for every
// configured outbox table. A misconfigured outbox degrades to log
// output rather than aborting startup; imports still enqueue, delivery
// just waits for an operator.
func startOutboxBackground(
	conf *configuration.Configuration,
	pool *pgxpool.Pool,
	logger *logrus.Logger,
	bus eventbus.EventBus,
) {
	outboxLog := logger.WithField("component", "outbox")

	tables, err := outbox.ParseIdentifierList(conf.Outbox.RelayTables)
	if err != nil {
		outboxLog.WithError(err).Warn("invalid OUTBOX_RELAY_TABLES, relay and cleaner disabled")
		return
	}
	if len(tables) == 0 {
		if conf.Outbox.RelayEnabled {
			outboxLog.Info("relay enabled but OUTBOX_RELAY_TABLES is empty")
		}
		return
	}

	if conf.Outbox.RelayEnabled {
		startRelays(conf, pool, bus, tables, outboxLog)
	}
	if conf.Outbox.CleanerEnabled {
		startCleaners(conf, pool, tables, outboxLog)
	}
}

func startRelays(
	conf *configuration.Configuration,
	pool *pgxpool.Pool,
	bus eventbus.EventBus,
	tables []pgx.Identifier,
	outboxLog *logrus.Entry,
) {
	eb, ok := bus.(eventbus.EventBusWithError)
	if !ok {
		outboxLog.Warn("eventbus does not support PublishE, relay not started")
		return
	}
	dispatcher := eventbusdispatcher.New(eb)

	for _, table := range tables {
		tableLog := outboxLog.WithField("table", outbox.TableLabel(table))
		relay, err := outbox.NewRelay(pool, table, dispatcher, outbox.RelayOptions{
			PollInterval:    conf.Outbox.RelayPollInterval,
			BatchSize:       conf.Outbox.RelayBatchSize,
			LockTTL:         conf.Outbox.RelayLockTTL,
			MaxAttempts:     conf.Outbox.RelayMaxAttempts,
			SingleActive:    conf.Outbox.RelaySingleActive,
			LastErrorMaxLen: conf.Outbox.LastErrorMaxBytes,
			DispatchTimeout: conf.Outbox.RelayDispatchTimeout,
			Logger:          tableLog,
		})
		if err != nil {
			tableLog.WithError(err).Warn("failed to create relay")
			continue
		}
		go func() {
			if err := relay.Run(context.Background()); err != nil {
				tableLog.WithError(err).Error("relay stopped")
			}
		}()
	}
}

func startCleaners(
	conf *configuration.Configuration,
	pool *pgxpool.Pool,
	tables []pgx.Identifier,
	outboxLog *logrus.Entry,
) {
	for _, table := range tables {
		tableLog := outboxLog.WithField("table", outbox.TableLabel(table))
		cleaner, err := outbox.NewCleaner(pool, table, outbox.CleanerOptions{
			Enabled:               true,
			Interval:              conf.Outbox.CleanerInterval,
			Retention:             conf.Outbox.CleanerRetention,
			DeadRetention:         conf.Outbox.CleanerDeadRetention,
			DeadAttemptsThreshold: conf.Outbox.RelayMaxAttempts,
			Logger:                tableLog,
		})
		if err != nil {
			tableLog.WithError(err).Warn("failed to create cleaner")
			continue
		}
		go func() {
			if err := cleaner.Run(context.Background()); err != nil {
				tableLog.WithError(err).Error("cleaner stopped")
			}
		}()
	}
}
