package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultProviderTimeout bounds a single adapter call when none is configured.
const DefaultProviderTimeout = 6 * time.Second

// Chain tries providers sequentially in priority order until one succeeds.
type Chain struct {
	providers []Provider
	timeout   time.Duration
	logger    *zap.SugaredLogger
}

// NewChain creates a Chain. Providers are tried in the given order; each call
// is bounded by timeout.
func NewChain(providers []Provider, timeout time.Duration, logger *zap.SugaredLogger) *Chain {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Chain{providers: providers, timeout: timeout, logger: logger}
}

// Names returns the provider ids in priority order.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// Has reports whether a provider with the given id is part of the chain.
func (c *Chain) Has(name string) bool {
	return c.lookup(name) != nil
}

// Fetch returns the first successful record. When forced is set only that
// provider is tried and its failure is returned as is.
func (c *Chain) Fetch(ctx context.Context, coord Coordinate, forced string) (Record, error) {
	if forced != "" {
		p := c.lookup(forced)
		if p == nil {
			return Record{}, fmt.Errorf("%w: %s", ErrUnknownProvider, forced)
		}
		rec, err := c.call(ctx, p, coord)
		if err != nil {
			c.logger.Errorw("forced provider failed", "provider", p.Name(), "coord", coord.String(), "err", err)
			return Record{}, err
		}
		return rec, nil
	}

	if len(c.providers) == 0 {
		return Record{}, ErrNoProviders
	}

	failed := &AllProvidersFailedError{}
	for _, p := range c.providers {
		rec, err := c.call(ctx, p, coord)
		if err == nil {
			return rec, nil
		}
		var perr *ProviderError
		if !errors.As(err, &perr) {
			perr = &ProviderError{Provider: p.Name(), Err: err}
		}
		c.logger.Warnw("provider failed, trying next", "provider", p.Name(), "coord", coord.String(), "err", perr.Err)
		failed.Attempts = append(failed.Attempts, perr)
	}
	return Record{}, failed
}

// call runs one provider detached from the caller's cancellation and bounded by the chain timeout.
func (c *Chain) call(ctx context.Context, p Provider, coord Coordinate) (Record, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	start := time.Now()
	rec, err := p.Fetch(callCtx, coord)
	if err != nil {
		return Record{}, &ProviderError{Provider: p.Name(), Err: err}
	}
	if err := checkComplete(rec); err != nil {
		return Record{}, &ProviderError{Provider: p.Name(), Err: err}
	}
	if rec.Source == "" {
		rec.Source = p.Name()
	}
	c.logger.Debugw("provider fetch succeeded", "provider", p.Name(), "coord", coord.String(), "took", time.Since(start))
	return rec, nil
}

func (c *Chain) lookup(name string) Provider {
	for _, p := range c.providers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// checkComplete rejects records that an adapter returned without a normalized condition.
func checkComplete(rec Record) error {
	if !rec.Weather.ConditionCode.Valid() {
		return fmt.Errorf("%w: missing condition", ErrMalformed)
	}
	if !rec.Weather.Precipitation.Type.Valid() {
		return fmt.Errorf("%w: missing precipitation type", ErrMalformed)
	}
	return nil
}
