package weather

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrLocationUnavailable is returned when no coordinate could be determined for a request.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrUnknownProvider is returned when a forced provider id is not in the chain.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrNoProviders is returned when the chain has no adapters configured.
	ErrNoProviders = errors.New("no weather providers configured")

	// ErrRateLimited marks a provider call rejected by a local or upstream rate limit.
	ErrRateLimited = errors.New("rate limited")

	// ErrMalformed marks a provider payload that could not be normalized.
	ErrMalformed = errors.New("malformed provider response")
)

// ProviderError wraps a failure of a single adapter.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// AllProvidersFailedError is returned when every adapter of the chain failed.
type AllProvidersFailedError struct {
	Attempts []*ProviderError
}

func (e *AllProvidersFailedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return "all weather providers failed: " + strings.Join(parts, "; ")
}

// RefreshTooSoonError is returned when a forced refresh is requested before the cool-down elapsed.
type RefreshTooSoonError struct {
	WaitFor time.Duration
	TTL     time.Duration
}

func (e *RefreshTooSoonError) Error() string {
	return fmt.Sprintf("refresh not allowed yet, retry in %s", e.WaitFor.Round(time.Second))
}

// CacheUnavailableError reports a failed cache read. Callers treat it as a miss.
type CacheUnavailableError struct {
	Key string
	Err error
}

func (e *CacheUnavailableError) Error() string {
	return fmt.Sprintf("cache unavailable reading %s: %v", e.Key, e.Err)
}

func (e *CacheUnavailableError) Unwrap() error { return e.Err }

// CacheWriteError reports a failed cache write. It never fails a request.
type CacheWriteError struct {
	Key string
	Err error
}

func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("cache write failed for %s: %v", e.Key, e.Err)
}

func (e *CacheWriteError) Unwrap() error { return e.Err }
