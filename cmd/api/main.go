package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/veritrace/veritrace-backend/api/routes"
	"github.com/veritrace/veritrace-backend/internal/events"
	"github.com/veritrace/veritrace-backend/internal/registry"
	"github.com/veritrace/veritrace-backend/internal/tracker"
	"github.com/veritrace/veritrace-backend/pkg/clock"
	"github.com/veritrace/veritrace-backend/pkg/config"
	"github.com/veritrace/veritrace-backend/pkg/enums"
	"github.com/veritrace/veritrace-backend/pkg/logger"
	"github.com/veritrace/veritrace-backend/pkg/metrics"
	"github.com/veritrace/veritrace-backend/pkg/qr"
	"github.com/veritrace/veritrace-backend/pkg/redis"
	"github.com/veritrace/veritrace-backend/pkg/types"
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

	var redisClient *redis.Client
	if cfg.Redis.Configured() {
		redisClient, err = redis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	sink, cleanup, err := buildSink(context.Background(), cfg, logg, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap event sink", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	registrySvc, err := registry.NewService(types.Principal(cfg.Owner.Principal))
	if err != nil {
		logg.Error(context.Background(), "failed to create authorization registry", err)
		os.Exit(1)
	}

	systemClock := clock.NewSystem()
	trackerSvc, err := tracker.NewService(tracker.ServiceParams{
		Registry: registrySvc,
		Store:    tracker.NewMemoryStore(),
		Clock:    systemClock,
		Sink:     sink,
		Logger:   logg,
		Metrics:  metrics.NewLedgerMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create product tracker", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.RouterParams{
		Config:      cfg,
		Logger:      logg,
		Clock:       systemClock,
		RedisClient: redisClient,
		Registry:    registrySvc,
		Tracker:     trackerSvc,
		QR:          qr.NewGenerator(cfg.QR),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":   cfg.App.Env,
		"addr":  addr,
		"sink":  cfg.Eventing.Sink,
		"owner": cfg.Owner.Principal,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}

// buildSink wires the event delivery backend selected by configuration.
// The returned cleanup releases sink-owned connections, if any.
func buildSink(ctx context.Context, cfg *config.Config, logg *logger.Logger, redisClient *redis.Client) (events.Sink, func(), error) {
	kind, err := cfg.Eventing.SinkKind()
	if err != nil {
		return nil, nil, err
	}

	switch kind {
	case enums.SinkKindRedis:
		sink, err := events.NewRedisSink(redisClient, cfg.Eventing.RedisChannel)
		if err != nil {
			return nil, nil, err
		}
		return sink, nil, nil
	case enums.SinkKindPubSub:
		sink, err := events.NewPubSubSink(ctx, cfg.GCP, cfg.Eventing.PubSubTopic)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := sink.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub sink", err)
			}
		}
		return sink, cleanup, nil
	default:
		return events.NewLogSink(logg), nil, nil
	}
}
