package providers

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/i474232898/weather-retrieval/internal/weather"
)

// RateLimitedProvider wraps a weather.Provider with a local token bucket.
// It never waits for a token: an exhausted bucket fails the call so the
// chain can move on to the next provider.
type RateLimitedProvider struct {
	provider weather.Provider
	limiter  *rate.Limiter
}

// NewRateLimitedProvider allows rps requests per second with the given burst.
// rps may be fractional.
func NewRateLimitedProvider(provider weather.Provider, rps float64, burst int) *RateLimitedProvider {
	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Name returns the wrapped provider's id so forced selection keeps working.
func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) Fetch(ctx context.Context, coord weather.Coordinate) (weather.Record, error) {
	if !r.limiter.Allow() {
		return weather.Record{}, fmt.Errorf("%s: %w", r.provider.Name(), weather.ErrRateLimited)
	}
	return r.provider.Fetch(ctx, coord)
}
