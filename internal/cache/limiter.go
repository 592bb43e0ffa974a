package cache

import (
	"context"
	"time"
)

// Limiter is a fixed-window rate limiter on top of a Store.
type Limiter struct {
	store  Store
	window time.Duration
	max    int64
}

func NewLimiter(store Store, window time.Duration, max int64) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 60
	}
	return &Limiter{store: store, window: window, max: max}
}

// Allow reports whether the caller identified by key may proceed. Store
// failures allow the request; throttling must not take the API down.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	n, err := l.store.Incr(ctx, "ratelimit:"+key, l.window)
	if err != nil {
		return true
	}
	return n <= l.max
}
