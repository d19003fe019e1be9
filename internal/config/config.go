package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-retrieval/internal/weather"
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// DefaultProviderOrder is the chain order used when PROVIDER_ORDER is unset.
var DefaultProviderOrder = []string{"tomorrowio", "openweathermap", "weatherapi", "openmeteo"}

type AppConfig struct {
	Port string `validate:"required,numeric"`

	CacheBackend  string `validate:"oneof=redis memory"`
	RedisAddr     string `validate:"required_if=CacheBackend redis"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	// CacheTTL is the lifetime of a stored record; RefreshGrace is the cool-down after a store.
	CacheTTL     time.Duration `validate:"gt=0"`
	RefreshGrace time.Duration `validate:"gte=0,ltfield=CacheTTL"`

	HTTPTimeout        time.Duration `validate:"gt=0"`
	ProviderTimeout    time.Duration `validate:"gt=0"`
	ProviderMaxRetries int           `validate:"gte=0,lte=5"`
	ProviderOrder      []string      `validate:"min=1"`

	TomorrowAPIKey    string
	OpenWeatherAPIKey string
	WeatherAPIKey     string

	RateLimitRPS   float64 `validate:"gt=0"`
	RateLimitBurst int     `validate:"gt=0"`

	GeolocationBaseURL string `validate:"required,url"`
	GeocoderAPIKey     string

	CoalesceFetches bool

	// WarmLocations are pre-fetched by the cache warmer every WarmInterval.
	WarmLocations []weather.Coordinate
	WarmInterval  time.Duration `validate:"gte=1m"`

	LogDevelopment bool
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:               getenvDefault("PORT", "8080"),
		CacheBackend:       strings.ToLower(getenvDefault("CACHE_BACKEND", BackendRedis)),
		RedisAddr:          getenvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getenvInt("REDIS_DB", 0),
		ProviderMaxRetries: getenvInt("PROVIDER_MAX_RETRIES", 1),
		TomorrowAPIKey:     os.Getenv("TOMORROW_API_KEY"),
		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		WeatherAPIKey:      os.Getenv("WEATHERAPI_API_KEY"),
		RateLimitBurst:     getenvInt("PROVIDER_RATE_LIMIT_BURST", 5),
		GeolocationBaseURL: getenvDefault("GEOLOCATION_BASE_URL", "http://ip-api.com/json"),
		GeocoderAPIKey:     os.Getenv("GEOCODER_API_KEY"),
		CoalesceFetches:    getenvBool("COALESCE_FETCHES", true),
		LogDevelopment:     getenvBool("LOG_DEVELOPMENT", false),
	}

	var err error
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"CACHE_TTL", weather.DefaultTTL, &cfg.CacheTTL},
		{"REFRESH_GRACE_WINDOW", weather.DefaultGraceWindow, &cfg.RefreshGrace},
		{"HTTP_TIMEOUT", 10 * time.Second, &cfg.HTTPTimeout},
		{"PROVIDER_TIMEOUT", weather.DefaultProviderTimeout, &cfg.ProviderTimeout},
		{"WARM_INTERVAL", 15 * time.Minute, &cfg.WarmInterval},
	}
	for _, d := range durations {
		if *d.dst, err = getenvDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	rps := getenvDefault("PROVIDER_RATE_LIMIT_RPS", "1")
	if cfg.RateLimitRPS, err = strconv.ParseFloat(rps, 64); err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_RATE_LIMIT_RPS: %w", err)
	}

	cfg.ProviderOrder = DefaultProviderOrder
	if v := os.Getenv("PROVIDER_ORDER"); v != "" {
		cfg.ProviderOrder = splitList(v, ",")
	}

	if cfg.WarmLocations, err = parseLocations(os.Getenv("WARM_LOCATIONS")); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type warmLocation struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

// parseLocations reads "lat,lon;lat,lon".
func parseLocations(raw string) ([]weather.Coordinate, error) {
	var coords []weather.Coordinate
	for _, pair := range splitList(raw, ";") {
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid WARM_LOCATIONS entry %q: want lat,lon", pair)
		}
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errLat != nil || errLon != nil {
			return nil, fmt.Errorf("invalid WARM_LOCATIONS entry %q: not a number", pair)
		}
		if err := validate.Struct(warmLocation{Lat: lat, Lon: lon}); err != nil {
			return nil, fmt.Errorf("invalid WARM_LOCATIONS entry %q: %w", pair, err)
		}
		coords = append(coords, weather.NewCoordinate(lat, lon))
	}
	return coords, nil
}

func splitList(raw, sep string) []string {
	var out []string
	for _, item := range strings.Split(raw, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
