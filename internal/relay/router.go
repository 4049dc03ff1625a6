package relay

import (
	"net/http"

	"github.com/shineum/mailrelay/internal/middleware"
)

// NewRouter mounts the send endpoint on "/" and "/send-email" plus
// GET /health. Every response, errors and panics included, carries the
// CORS headers.
func NewRouter(h *Handler, mw *middleware.Middleware, limit middleware.RateLimitConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)

	if limit.KeyFn == nil {
		limit.KeyFn = middleware.IPKey
	}
	send := mw.RateLimit(limit)(h)
	mux.Handle("/{$}", send)
	mux.Handle("/send-email", send)

	return middleware.Chain(mux,
		middleware.CORS("*", middleware.DefaultAllowedHeaders),
		mw.RequestID,
		mw.Logger,
		mw.Recover,
	)
}
