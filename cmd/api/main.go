package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/orderdesk-backend/api/controllers"
	"github.com/angelmondragon/orderdesk-backend/api/routes"
	"github.com/angelmondragon/orderdesk-backend/internal/activation"
	"github.com/angelmondragon/orderdesk-backend/internal/crm"
	"github.com/angelmondragon/orderdesk-backend/internal/notifier"
	"github.com/angelmondragon/orderdesk-backend/internal/settle"
	"github.com/angelmondragon/orderdesk-backend/internal/workspace"
	"github.com/angelmondragon/orderdesk-backend/pkg/config"
	"github.com/angelmondragon/orderdesk-backend/pkg/instance"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/metrics"
	"github.com/angelmondragon/orderdesk-backend/pkg/pubsub"
	"github.com/angelmondragon/orderdesk-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	crmClient, err := crm.NewHTTPClient(cfg.CRM, crm.WithMetrics(metrics.NewRemoteCallMetrics(registry)))
	if err != nil {
		logg.Error(ctx, "failed to create crm client", err)
		os.Exit(1)
	}

	origin := instance.GetID(cfg.Notifier.InstanceID)
	bus := notifier.NewBus(cfg.Notifier, origin, logg.Component("notifier"))
	defer func() {
		if err := bus.Close(); err != nil {
			logg.Error(context.Background(), "error closing notifier bus", err)
		}
	}()

	// interface values stay nil when Redis is disabled
	var (
		activationCache  activation.Cache
		idempotencyStore redis.IdempotencyStore
		redisPinger      controllers.Pinger
		pubsubPinger     controllers.Pinger
	)

	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		activationCache = redisClient
		idempotencyStore = redisClient
		redisPinger = redisClient

		relay, err := notifier.NewRedisRelay(redisClient, cfg.Notifier.RedisChannel, bus, logg.Component("redis-relay"))
		if err != nil {
			logg.Error(ctx, "failed to create redis relay", err)
			os.Exit(1)
		}
		bus.AddForwarder(relay)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "redis relay stopped unexpectedly", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis disabled; events stay local and idempotency keys are not enforced")
	}

	if cfg.PubSub.Enabled(cfg.GCP) {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub client", err)
			}
		}()
		exporter, err := notifier.NewPubSubExporter(pubsubClient.OrderEventsPublisher(), cfg.PubSub.OrderEventsTopic, bus.Origin())
		if err != nil {
			logg.Error(ctx, "failed to create pubsub exporter", err)
			os.Exit(1)
		}
		bus.AddForwarder(exporter)
		pubsubPinger = pubsubClient
	}

	workspaces, err := workspace.NewRegistry(workspace.Params{
		Views:         cfg.Views,
		CRM:           cfg.CRM,
		Remote:        crmClient,
		Activation:    activation.NewRegistry(crmClient, activationCache, logg),
		Bus:           bus,
		Settle:        settle.NewWaiter(cfg.Settle, logg),
		ReloadMetrics: metrics.NewReloadMetrics(registry),
		Logger:        logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create workspace registry", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": bus.Origin(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:      cfg,
			Logger:      logg,
			Workspaces:  workspaces,
			Idempotency: idempotencyStore,
			Readiness: map[string]controllers.Pinger{
				"redis":  redisPinger,
				"pubsub": pubsubPinger,
			},
			Gatherer: registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "api server shutdown failed", err)
	}
	if err := workspaces.CloseAll(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "failed to close workspaces", err)
	}
	logg.Info(shutdownCtx, "api server shutting down gracefully")
}
