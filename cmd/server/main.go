package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/prodcompare/backend/config"
	httpDelivery "github.com/prodcompare/backend/internal/delivery/http"
	"github.com/prodcompare/backend/internal/domain"
	"github.com/prodcompare/backend/internal/infrastructure/cache"
	"github.com/prodcompare/backend/internal/infrastructure/geo"
	"github.com/prodcompare/backend/internal/infrastructure/recommender"
	"github.com/prodcompare/backend/internal/infrastructure/reference"
	"github.com/prodcompare/backend/internal/infrastructure/storage"
	"github.com/prodcompare/backend/internal/observability"
	"github.com/prodcompare/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache", cfg.Cache.Type).
		Str("database", cfg.Database.Driver).
		Msg("starting prodcompare backend v1.0.0")

	// Initialize infrastructure dependencies
	cacheRepo, closeCache, err := newCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	db, dialect, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	if err := storage.Migrate(ctx, db, dialect); err != nil {
		return err
	}

	regions, err := reference.RegionTable(cfg.Comparison.RegionsPath)
	if err != nil {
		return err
	}
	policy, err := reference.OrderingPolicyFile(cfg.Comparison.PolicyPath)
	if err != nil {
		return err
	}
	logger.Info().Int("countries", regions.Len()).Int("orderable_specs", len(policy)).Msg("reference data loaded")

	var geolocation domain.GeolocationProvider
	if cfg.Geolocation.Provider == "mock" {
		geolocation = geo.NewMockProvider()
		logger.Warn().Msg("using mock geolocation (Vancouver, CA)")
	} else {
		geolocation = geo.NewClient(geo.ClientConfig{
			BaseURL:  cfg.Geolocation.BaseURL,
			Timeout:  cfg.Geolocation.Timeout,
			CacheTTL: cfg.Geolocation.CacheTTL,
		}, cacheRepo, logger)
	}

	// Initialize usecase layer
	var recommendations *usecase.RecommendationService
	if cfg.Recommendation.GeminiAPIKey != "" {
		gemini, err := recommender.NewGeminiRecommender(ctx, recommender.GeminiConfig{
			APIKey:      cfg.Recommendation.GeminiAPIKey,
			Model:       cfg.Recommendation.Model,
			Temperature: cfg.Recommendation.Temperature,
		}, logger)
		if err != nil {
			return err
		}
		recommendations = usecase.NewRecommendationService(cacheRepo, gemini, usecase.RecommendationServiceConfig{
			CacheTTL:               cfg.Cache.TTL,
			MaxProducts:            cfg.Recommendation.MaxProducts,
			MinConfidenceThreshold: cfg.Recommendation.MinConfidence,
		}, logger)
		logger.Info().Str("model", cfg.Recommendation.Model).Msg("recommendations enabled")
	} else {
		logger.Warn().Msg("Gemini API key not configured; /recommend will answer 503")
	}

	tracking := usecase.NewTrackingService(storage.NewComparisonRepository(db, dialect), logger)
	tables := usecase.NewTableBuilder(
		usecase.NewBestSpecRanker(nil, usecase.RankerConfig{AlwaysMaximum: cfg.Comparison.AlwaysMaximum}, logger),
		usecase.NewRegionResolver(regions, logger),
	)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(httpDelivery.HandlerDeps{
		Recommendations: recommendations,
		Tracking:        tracking,
		Tables:          tables,
		Policy:          policy,
		Geolocation:     geolocation,
		SessionCookie:   cfg.Comparison.SessionCookie,
		Logger:          logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      httpDelivery.SetupRouter(cfg, handler, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newCache builds the configured cache and a function releasing it
func newCache(ctx context.Context, cfg *config.Config) (domain.CacheRepository, func(), error) {
	if cfg.Cache.Type == "redis" {
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			URL:      cfg.Cache.RedisURL,
			PoolSize: cfg.Cache.PoolSize,
			Prefix:   cfg.Cache.Prefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		return redisCache, func() { _ = redisCache.Close() }, nil
	}

	memoryCache := cache.NewMemoryCache(0)
	return memoryCache, func() { _ = memoryCache.Close() }, nil
}
