package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/facetophone/security-service/internal/alerts"
	"github.com/facetophone/security-service/internal/api"
	"github.com/facetophone/security-service/internal/biometric"
	"github.com/facetophone/security-service/internal/config"
	"github.com/facetophone/security-service/internal/eventlog"
	"github.com/facetophone/security-service/internal/fraud"
	"github.com/facetophone/security-service/internal/pkg/logger"
	"github.com/facetophone/security-service/internal/storage"
	"github.com/facetophone/security-service/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Telemetry.ServiceName, cfg.Telemetry.Environment, cfg.Telemetry.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("failed to initialize tracing", logger.ErrorField(err))
	}

	// Encryption key and shared codec. One codec serves every
	// persistence path.
	key, err := storage.LoadOrCreateKey(cfg.Storage.KeyPath)
	if err != nil {
		log.Fatal("failed to load encryption key", logger.ErrorField(err))
	}
	codec, err := storage.NewCodec(key)
	if err != nil {
		log.Fatal("failed to initialize codec", logger.ErrorField(err))
	}

	var store storage.Store
	switch cfg.Storage.Backend {
	case "redis":
		redisStore, err := storage.NewRedisStore(ctx, &cfg.Redis, codec, log)
		if err != nil {
			log.Fatal("failed to connect to redis store", logger.ErrorField(err))
		}
		defer redisStore.Close()
		store = redisStore
	default:
		store = storage.NewMemoryStore(codec)
	}
	log.Info("encrypted store ready", logger.StringField("backend", cfg.Storage.Backend))

	rng := fraud.NewRandomSource()

	monitor := alerts.NewMonitor(store, log, cfg.Alerts.MaxRetained, cfg.Fraud.SuspiciousScore)
	events := eventlog.New(store, log, monitor)
	engine := fraud.NewEngine(cfg.Fraud, log, fraud.WithRandomSource(rng))
	processor := fraud.NewProcessor(engine, store, events, monitor, log)

	matcher := biometric.NewMatcher(rng)
	biometrics := biometric.NewService(store, matcher, cfg.Biometric, rng, log)
	// No platform capability is wired in the demo build; every call
	// takes the simulation fallback.
	authenticator := biometric.NewAuthenticator(nil, cfg.Biometric, rng, log)

	server := api.NewServer(cfg, log, processor, biometrics, authenticator, events, monitor)

	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	log.Info("server started", logger.StringField("addr", serverAddr))

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case <-gctx.Done():
			return gctx.Err()
		}

		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Echo().Shutdown(shutdownCtx); err != nil {
			return err
		}
		return shutdownTracing(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited with error", logger.ErrorField(err))
	}
	log.Info("server exited properly")
}
