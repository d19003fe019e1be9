package weather

import "time"

// RefreshDecision is the RefreshGate verdict for a forced refresh.
type RefreshDecision struct {
	Allowed bool
	WaitFor time.Duration
}

// MayRefresh decides whether a cached entry with the given remaining TTL may be
// refreshed on demand. Refreshes are blocked until grace has elapsed since the
// entry was stored, that is while remaining > ttlTotal-grace.
func MayRefresh(remaining, ttlTotal, grace time.Duration) RefreshDecision {
	blockThreshold := ttlTotal - grace
	if remaining > blockThreshold {
		return RefreshDecision{WaitFor: remaining - blockThreshold}
	}
	return RefreshDecision{Allowed: true}
}
