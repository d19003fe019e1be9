package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-retrieval/internal/api/http"
	"github.com/i474232898/weather-retrieval/internal/config"
	"github.com/i474232898/weather-retrieval/internal/scheduler"
	"github.com/i474232898/weather-retrieval/internal/store"
	"github.com/i474232898/weather-retrieval/internal/weather"
	"github.com/i474232898/weather-retrieval/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	baseLogger, err := newLogger(cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer baseLogger.Sync()
	logger := baseLogger.Sugar()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	cache, closeCache := newCacheStore(cfg, logger)
	defer closeCache()

	provs, err := buildProviders(cfg, httpClient, logger)
	if err != nil {
		logger.Fatalw("failed to build providers", "err", err)
	}
	backoff := providerBackoff(cfg)

	geo := providers.NewIPAPIGeolocator(httpClient,
		providers.WithBaseURL(cfg.GeolocationBaseURL),
		providers.WithBackoff(backoff),
	)
	chain := weather.NewChain(provs, cfg.ProviderTimeout, logger)

	opts := []weather.Option{
		weather.WithAirQuality(providers.NewAirQualityProvider(httpClient, providers.WithBackoff(backoff)), weather.DefaultAirQualityTimeout),
		weather.WithTTL(cfg.CacheTTL, cfg.RefreshGrace),
		weather.WithCoalescing(cfg.CoalesceFetches),
		weather.WithLogger(logger),
	}
	if cfg.GeocoderAPIKey != "" {
		opts = append(opts, weather.WithPlaceNamer(providers.NewGeocoderPlaceNamer(cfg.GeocoderAPIKey)))
	}

	// Core service orchestrating resolution, cache and providers.
	service := weather.NewService(cache, weather.NewResolver(geo, logger), chain, opts...)

	// Scheduler that keeps configured locations warm.
	sched := scheduler.New(cfg.WarmLocations, cfg.WarmInterval, service, logger)
	if err := sched.Start(); err != nil {
		logger.Fatalw("failed to start scheduler", "err", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-retrieval",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
	}))

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		logger.Infow("server starting", "port", cfg.Port, "providers", service.Providers())
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Errorw("fiber server stopped", "err", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Errorw("error during shutdown", "err", err)
	}
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newCacheStore(cfg *config.AppConfig, logger *zap.SugaredLogger) (weather.CacheStore, func()) {
	if cfg.CacheBackend == config.BackendMemory {
		logger.Infow("using in-memory cache store")
		return store.NewMemoryStore(10000), func() {}
	}

	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		// Reads degrade to live fetches until Redis is reachable.
		logger.Warnw("redis not reachable at startup", "addr", cfg.RedisAddr, "err", err)
	}
	return store.NewRedisStore(rc), func() { _ = rc.Close() }
}

func providerBackoff(cfg *config.AppConfig) providers.BackoffConfig {
	b := providers.DefaultBackoff
	b.MaxRetries = cfg.ProviderMaxRetries
	return b
}

// buildProviders follows PROVIDER_ORDER, skipping adapters without an API key.
func buildProviders(cfg *config.AppConfig, client *http.Client, logger *zap.SugaredLogger) ([]weather.Provider, error) {
	backoff := providers.WithBackoff(providerBackoff(cfg))
	keyed := map[string]string{
		providers.TomorrowIOName:  cfg.TomorrowAPIKey,
		providers.OpenWeatherName: cfg.OpenWeatherAPIKey,
		providers.WeatherAPIName:  cfg.WeatherAPIKey,
	}

	var provs []weather.Provider
	for _, name := range cfg.ProviderOrder {
		if key, ok := keyed[name]; ok && key == "" {
			logger.Warnw("provider disabled: api key not configured", "provider", name)
			continue
		}

		var (
			p   weather.Provider
			err error
		)
		switch name {
		case providers.TomorrowIOName:
			p, err = providers.NewTomorrowIOProvider(client, cfg.TomorrowAPIKey, backoff)
		case providers.OpenWeatherName:
			p, err = providers.NewOpenWeatherProvider(client, cfg.OpenWeatherAPIKey, backoff)
		case providers.WeatherAPIName:
			p, err = providers.NewWeatherAPIProvider(client, cfg.WeatherAPIKey, backoff)
		case providers.OpenMeteoName:
			p, err = providers.NewOpenMeteoProvider(client, backoff)
		default:
			return nil, fmt.Errorf("%w: %s", weather.ErrUnknownProvider, name)
		}
		if err != nil {
			return nil, err
		}
		provs = append(provs, providers.NewRateLimitedProvider(p, cfg.RateLimitRPS, cfg.RateLimitBurst))
	}
	if len(provs) == 0 {
		return nil, weather.ErrNoProviders
	}
	return provs, nil
}
