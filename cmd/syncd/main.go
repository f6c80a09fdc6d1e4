package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"netsync/application/bus"
	"netsync/application/coherency"
	"netsync/application/diffsync"
	"netsync/application/refresher"
	"netsync/infrastructure/config"
	"netsync/infrastructure/persistence/breaker"
	"netsync/infrastructure/persistence/sqlitecache"
	"netsync/infrastructure/persistence/supabase"
	"netsync/pkg/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	watcher, err := config.NewWatcher(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to start config watcher", zap.Error(err))
	}
	defer watcher.Stop()

	if cfg.TracingEndpoint != "" {
		tp, err := observability.InitTracing("netsync", cfg.Environment, cfg.TracingEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	// Local durable tier
	cache, err := sqlitecache.Open(cfg.CachePath, logger)
	if err != nil {
		logger.Fatal("Failed to open persistent cache", zap.Error(err))
	}
	defer func() { _ = cache.Close() }()

	// Remote tier behind the circuit breaker
	remote, err := supabase.New(cfg.SupabaseURL, cfg.SupabaseKey)
	if err != nil {
		logger.Fatal("Failed to create remote store client", zap.Error(err))
	}
	store := breaker.Wrap(remote.Ports(), logger)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	if cfg.EnableMetrics {
		go serveMetrics(cfg.MetricsAddress, registry, logger)
	}

	eventBus := bus.NewEventBus(logger)
	syncer := diffsync.NewSyncer(store, logger, metrics)

	notify := func(err error) {
		logger.Warn("user-facing error", zap.Error(err))
	}

	engine := coherency.NewEngine(
		cfg.OwnerID,
		cache,
		store,
		syncer,
		eventBus,
		logger,
		metrics,
		coherency.Options{
			StalenessWindow: cfg.StalenessWindow,
			FetchTimeout:    cfg.FetchTimeout,
			Notify:          notify,
		},
	)

	staged := refresher.NewRefresher(
		engine, cache, eventBus, refresher.DefaultPolicy(), logger, metrics, notify,
	)
	staged.Attach()
	defer staged.Detach()

	if err := engine.Start(ctx); err != nil {
		logger.Fatal("Failed to start sync engine", zap.Error(err))
	}
	defer engine.Close()

	logger.Info("sync engine running",
		zap.String("environment", cfg.Environment),
		zap.String("owner", cfg.OwnerID),
	)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
}

// newLogger selects the logger by environment, production encoding in
// production and development encoding everywhere else.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	logger.Info("metrics listener started", zap.String("address", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics listener stopped", zap.Error(err))
	}
}
