package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MikeSquared-Agency/Georisk/internal/api"
	"github.com/MikeSquared-Agency/Georisk/internal/broker"
	"github.com/MikeSquared-Agency/Georisk/internal/cache"
	"github.com/MikeSquared-Agency/Georisk/internal/catalog"
	"github.com/MikeSquared-Agency/Georisk/internal/config"
	"github.com/MikeSquared-Agency/Georisk/internal/geodata"
	"github.com/MikeSquared-Agency/Georisk/internal/hermes"
	"github.com/MikeSquared-Agency/Georisk/internal/metrics"
	"github.com/MikeSquared-Agency/Georisk/internal/providers"
	"github.com/MikeSquared-Agency/Georisk/internal/scoring"
	"github.com/MikeSquared-Agency/Georisk/internal/store"
)

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Catalog
	cat := catalog.Default()
	if len(cfg.Scoring.DefaultWeights) > 0 {
		overrides := make(map[catalog.FactorID]float64, len(cfg.Scoring.DefaultWeights))
		for id, w := range cfg.Scoring.DefaultWeights {
			overrides[catalog.FactorID(id)] = w
		}
		cat, err = cat.WithDefaultWeights(overrides)
		if err != nil {
			logger.Error("invalid default weights", "error", err)
			os.Exit(1)
		}
	}

	// Store
	var db store.Store
	if cfg.Database.URL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		db = pg
		logger.Info("connected to database")
	} else {
		db = store.NewMemoryStore()
		logger.Warn("no database configured, assessments are kept in memory")
	}
	defer db.Close()

	// Hermes (optional)
	var hermesClient hermes.Client
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Warn("failed to connect to hermes, running without events", "error", err)
		} else {
			hermesClient = hc
			defer hc.Close()
			logger.Info("connected to hermes")
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Providers
	opts := providers.Options{
		Timeout:            cfg.ProviderTimeout(),
		RateLimitRPM:       cfg.Providers.RateLimitRPM,
		BreakerThreshold:   cfg.Providers.CircuitBreaker.Threshold,
		BreakerOpenTimeout: cfg.BreakerOpenTimeout(),
		BreakerMaxRequests: cfg.Providers.CircuitBreaker.MaxRequests,
		Metrics:            m,
		Logger:             logger,
	}
	redisClient, err := cache.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Warn("failed to connect to redis, running without observation cache", "error", err)
	} else if redisClient != nil {
		defer redisClient.Close()
		opts.Cache = cache.NewRedisCache(redisClient, cfg.CacheTTL())
		logger.Info("observation cache enabled", "ttl", cfg.CacheTTL())
	}

	var b *broker.Broker
	opts.OnFallback = func(ctx context.Context, ev providers.FallbackEvent) {
		if b != nil {
			b.PublishFallback(ctx, ev)
		}
	}

	ua := cfg.Providers.UserAgent
	nominatim := geodata.NewNominatimClient(cfg.Providers.NominatimURL, ua)
	overpass := geodata.NewOverpassClient(cfg.Providers.OverpassURL, ua)
	set := providers.NewDefaultSet(providers.Sources{
		FloodZones:             geodata.NewNFHLClient(cfg.Providers.FloodURL, ua),
		Elevation:              geodata.NewOpenElevationClient(cfg.Providers.ElevationURL, ua),
		LandCover:              nominatim,
		Features:               overpass,
		InfrastructureRadiusKm: cfg.Providers.InfrastructureRadiusKm,
	}, opts)
	defer set.Close()

	// Engine and batch runner
	engine, err := scoring.NewEngine(cat, set, logger, scoring.WithTopN(cfg.Scoring.TopN), scoring.WithMetrics(m))
	if err != nil {
		logger.Error("failed to build scoring engine", "error", err)
		os.Exit(1)
	}
	runner := scoring.NewBatchRunner(engine, nominatim, cfg.Batch.Concurrency, cfg.ItemTimeout(), m, logger)

	// Broker
	b = broker.New(cat, engine, runner, nominatim, db, hermesClient, cfg, logger)
	defer b.Stop()
	b.SetupSubscriptions()

	// API server
	router := api.NewRouter(b, db, set, cfg, logger)
	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           api.NewMetricsRouter(prometheus.DefaultGatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)
	cancel()

	logger.Info("shutdown complete")
}
