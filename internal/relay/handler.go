// Package relay implements the HTTP endpoint that accepts composed messages
// and forwards them to a delivery provider.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shineum/mailrelay/internal/email"
	"github.com/shineum/mailrelay/internal/logger"
	"github.com/shineum/mailrelay/internal/middleware"
	"github.com/shineum/mailrelay/internal/provider"
	"github.com/shineum/mailrelay/internal/telemetry"
)

const defaultMaxBodyBytes = 40 << 20

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds the dependencies of a Handler.
type Config struct {
	Provider     provider.Provider
	DefaultFrom  string
	MaxBodyBytes int64
	Logger       *logger.Logger
	// Redis is checked by the health endpoint when set.
	Redis          HealthChecker
	TracerProvider trace.TracerProvider
}

// Handler serves the send endpoint. It keeps no state between requests.
type Handler struct {
	provider    provider.Provider
	defaultFrom string
	maxBody     int64
	log         *logger.Logger
	redis       HealthChecker
	tracer      trace.Tracer
}

// NewHandler creates a Handler from cfg.
func NewHandler(cfg Config) *Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Handler{
		provider:    cfg.Provider,
		defaultFrom: cfg.DefaultFrom,
		maxBody:     maxBody,
		log:         log.WithComponent("relay"),
		redis:       cfg.Redis,
		tracer:      telemetry.Tracer(cfg.TracerProvider),
	}
}

// ServeHTTP answers preflight requests with an empty 204 and sends on POST.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
	case http.MethodPost:
		h.send(w, r)
	default:
		w.Header().Set("Allow", "OPTIONS, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	log := h.log
	if id := middleware.GetRequestID(r.Context()); id != "" {
		log = log.WithRequestID(id)
	}

	ctx, span := h.tracer.Start(telemetry.Extract(r.Context(), r.Header), "relay.send",
		trace.WithAttributes(attribute.String("mail.provider", h.provider.Name())))

	res, err := h.deliver(ctx, w, r, log)
	telemetry.EndSpan(span, err)
	if err != nil {
		log.Error().Err(err).Msg("send-email failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info().Str("id", res.ID).Msg("email sent")
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) deliver(ctx context.Context, w http.ResponseWriter, r *http.Request, log *logger.Logger) (*email.SendResult, error) {
	var req email.EmailRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON body: %v", ErrInvalidRequest, err)
	}

	log.Info().
		Str("to", req.To).
		Str("subject", req.Subject).
		Int("attachments", len(req.Attachments)).
		Msg("sending email")

	msg, err := BuildEmail(req, h.defaultFrom)
	if err != nil {
		return nil, err
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("mail.recipients", len(msg.To)+len(msg.Cc)+len(msg.Bcc)),
		attribute.Int("mail.attachments", len(msg.Attachments)),
	)

	return h.provider.Send(ctx, msg)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Provider string            `json:"provider"`
	Services map[string]string `json:"services,omitempty"`
}

// Health reports the configured provider and, when present, Redis status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Provider: h.provider.Name()}
	code := http.StatusOK

	if h.redis != nil {
		resp.Services = map[string]string{"redis": "healthy"}
		if err := h.redis.HealthCheck(r.Context()); err != nil {
			resp.Services["redis"] = "unhealthy"
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, email.ErrorResponse{Error: message})
}
