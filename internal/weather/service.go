package weather

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL is the lifetime of a freshly stored record.
	DefaultTTL = 30 * time.Minute
	// DefaultGraceWindow is the cool-down after a store during which forced refreshes are denied.
	DefaultGraceWindow = 10 * time.Minute
	// DefaultAirQualityTimeout bounds the air-quality fetch.
	DefaultAirQualityTimeout = 5 * time.Second
)

// Request is a single retrieval request as seen by the boundary.
type Request struct {
	Lat           *float64
	Lon           *float64
	ClientIP      string
	Refresh       bool
	ForceProvider string
	RequestID     string
}

// Result is the outcome of a successful retrieval.
type Result struct {
	Record    Record
	CacheKey  string
	FromCache bool
	// TTL is the remaining lifetime of the cache entry, set only when FromCache is true.
	TTL time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithAirQuality sets the fixed air-quality provider merged into fetched records.
func WithAirQuality(p AirQualityProvider, timeout time.Duration) Option {
	return func(s *Service) {
		s.airQuality = p
		if timeout > 0 {
			s.aqTimeout = timeout
		}
	}
}

// WithPlaceNamer sets the collaborator used to label device coordinates.
func WithPlaceNamer(p PlaceNamer) Option {
	return func(s *Service) {
		s.places = p
	}
}

// WithTTL sets the record lifetime and the refresh cool-down.
func WithTTL(ttl, grace time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
		if grace >= 0 {
			s.grace = grace
		}
	}
}

// WithCoalescing makes concurrent fetches for the same key share one provider traversal.
func WithCoalescing(enabled bool) Option {
	return func(s *Service) {
		s.coalesce = enabled
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service coordinates coordinate resolution, the cache, the refresh gate and the provider chain.
type Service struct {
	cache      recordCache
	resolver   *Resolver
	chain      *Chain
	airQuality AirQualityProvider
	aqTimeout  time.Duration
	places     PlaceNamer

	ttl      time.Duration
	grace    time.Duration
	coalesce bool
	group    singleflight.Group

	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewService creates a new Service.
func NewService(cache CacheStore, resolver *Resolver, chain *Chain, opts ...Option) *Service {
	s := &Service{
		cache:     recordCache{store: cache},
		resolver:  resolver,
		chain:     chain,
		aqTimeout: DefaultAirQualityTimeout,
		ttl:       DefaultTTL,
		grace:     DefaultGraceWindow,
		logger:    zap.NewNop().Sugar(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Providers returns the chain order.
func (s *Service) Providers() []string {
	return s.chain.Names()
}

// Ping checks the backing cache store.
func (s *Service) Ping(ctx context.Context) error {
	return s.cache.store.Ping(ctx)
}

// Retrieve answers a request from the cache or, on a miss or a permitted
// refresh, from the provider chain.
func (s *Service) Retrieve(ctx context.Context, req Request) (Result, error) {
	log := s.logger.With("requestId", req.RequestID)

	loc, err := s.resolver.Resolve(ctx, req.Lat, req.Lon, req.ClientIP)
	if err != nil {
		return Result{}, err
	}
	key := CacheKey(loc.Coordinate)
	log = log.With("cacheKey", key)

	if req.ForceProvider != "" {
		if !s.chain.Has(req.ForceProvider) {
			return Result{CacheKey: key}, fmt.Errorf("%w: %s", ErrUnknownProvider, req.ForceProvider)
		}
		log.Infow("forced provider fetch", "provider", req.ForceProvider)
		rec, err := s.fetchAndStore(ctx, key, loc, req.ForceProvider, req.Refresh)
		if err != nil {
			return Result{CacheKey: key}, err
		}
		return Result{Record: rec, CacheKey: key}, nil
	}

	cached, err := s.cache.get(ctx, key)
	if err != nil {
		log.Warnw("cache read failed, fetching live", "err", err)
		cached = nil
	}

	if cached != nil {
		if !req.Refresh {
			log.Debugw("cache hit", "remaining", cached.Remaining)
			return Result{Record: cached.Record, CacheKey: key, FromCache: true, TTL: cached.Remaining}, nil
		}

		ttlTotal := cached.TTLTotal
		if ttlTotal <= 0 {
			ttlTotal = s.ttl
		}
		decision := MayRefresh(cached.Remaining, ttlTotal, s.grace)
		if !decision.Allowed {
			log.Infow("refresh denied", "remaining", cached.Remaining, "waitFor", decision.WaitFor)
			return Result{CacheKey: key}, &RefreshTooSoonError{WaitFor: decision.WaitFor, TTL: cached.Remaining}
		}
		log.Infow("refresh permitted", "remaining", cached.Remaining)
	}

	rec, err := s.fetch(ctx, key, loc, req.Refresh)
	if err != nil {
		log.Errorw("retrieval failed", "err", err)
		return Result{CacheKey: key}, err
	}
	return Result{Record: rec, CacheKey: key}, nil
}

// Warm pre-populates the cache for coord when the entry is absent or inside
// its final grace window. It reports whether a fetch happened.
func (s *Service) Warm(ctx context.Context, coord Coordinate) (bool, error) {
	coord = NewCoordinate(coord.lat, coord.lon)
	key := CacheKey(coord)

	cached, err := s.cache.get(ctx, key)
	if err != nil {
		s.logger.Warnw("cache read failed while warming", "cacheKey", key, "err", err)
	}
	if cached != nil && cached.Remaining > s.grace {
		return false, nil
	}

	if _, err := s.fetch(ctx, key, Location{Coordinate: coord, Source: LocationDevice}, false); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) fetch(ctx context.Context, key string, loc Location, refreshed bool) (Record, error) {
	if !s.coalesce {
		return s.fetchAndStore(ctx, key, loc, "", refreshed)
	}

	flightKey := key
	if refreshed {
		flightKey += "|refresh"
	}
	v, err, shared := s.group.Do(flightKey, func() (interface{}, error) {
		return s.fetchAndStore(ctx, key, loc, "", refreshed)
	})
	if err != nil {
		return Record{}, err
	}
	rec := v.(Record)
	if shared {
		s.logger.Debugw("joined in-flight fetch", "cacheKey", key)
		rec.LocationSource = loc.Source
	}
	return rec, nil
}

// fetchAndStore runs the chain, merges air quality and writes the cache.
// It is detached from the caller's cancellation so a started fetch runs to
// completion or to its own timeouts.
func (s *Service) fetchAndStore(ctx context.Context, key string, loc Location, forced string, refreshed bool) (Record, error) {
	ctx = context.WithoutCancel(ctx)

	rec, err := s.chain.Fetch(ctx, loc.Coordinate, forced)
	if err != nil {
		return Record{}, err
	}
	rec.LocationSource = loc.Source
	rec.Refreshed = refreshed
	rec.Timestamp = s.now().UTC()
	rec.Place = loc.Place

	rec = s.withAirQuality(ctx, loc.Coordinate, rec)
	if rec.Place == "" && s.places != nil {
		place, err := s.places.PlaceName(ctx, loc.Coordinate)
		if err != nil {
			s.logger.Warnw("place lookup failed", "cacheKey", key, "err", err)
		} else {
			rec.Place = place
		}
	}

	if err := s.cache.set(ctx, key, rec, s.ttl, s.now().UTC()); err != nil {
		s.logger.Errorw("cache write failed, serving fresh record", "cacheKey", key, "err", err)
	}
	return rec, nil
}

func (s *Service) withAirQuality(ctx context.Context, coord Coordinate, rec Record) Record {
	if s.airQuality == nil {
		return rec
	}
	aqCtx, cancel := context.WithTimeout(ctx, s.aqTimeout)
	defer cancel()

	aq, err := s.airQuality.FetchAirQuality(aqCtx, coord)
	if err != nil {
		s.logger.Warnw("air quality fetch failed, leaving section empty",
			"provider", s.airQuality.Name(), "coord", coord.String(), "err", err)
		return MergeAirQuality(rec, AirQuality{}, "")
	}
	return MergeAirQuality(rec, aq, s.airQuality.Name())
}
