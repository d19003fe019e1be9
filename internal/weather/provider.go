package weather

import (
	"context"
	"time"
)

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks

// Provider abstracts a weather data source (e.g. Tomorrow.io, OpenWeatherMap, Open-Meteo).
// Fetch either returns a complete record with Weather, Source and Timestamp set, or an error.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, coord Coordinate) (Record, error)
}

// AirQualityProvider is the fixed pollutant source merged into every fetched record.
type AirQualityProvider interface {
	Name() string
	FetchAirQuality(ctx context.Context, coord Coordinate) (AirQuality, error)
}

// Geolocator resolves a client IP address to a location. An empty ip means
// the caller's public address as seen by the collaborator.
type Geolocator interface {
	Locate(ctx context.Context, ip string) (Coordinate, string, error)
}

// PlaceNamer returns a human-readable label for a coordinate.
type PlaceNamer interface {
	PlaceName(ctx context.Context, coord Coordinate) (string, error)
}

// CacheStore is a key/value store with per-key TTL shared with other subsystems.
// Get and TTL return store.ErrNotFound on a miss.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
