// Package middleware holds the HTTP middleware used by the relay.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/shineum/mailrelay/internal/logger"
)

// Counter is the storage behind RateLimit. *cache.Redis satisfies it.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// Middleware holds all HTTP middleware
type Middleware struct {
	counter Counter
	log     *logger.Logger
}

// New creates a new Middleware instance. A nil counter disables rate limiting.
func New(counter Counter, log *logger.Logger) *Middleware {
	if log == nil {
		log = logger.Nop()
	}
	return &Middleware{
		counter: counter,
		log:     log,
	}
}

// Chain wraps h so that the first middleware listed runs first.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
