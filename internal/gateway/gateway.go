// Package gateway posts drafts from the composer to the relay endpoint.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shineum/mailrelay/internal/attach"
	"github.com/shineum/mailrelay/internal/compose"
	"github.com/shineum/mailrelay/internal/email"
	"github.com/shineum/mailrelay/internal/logger"
	"github.com/shineum/mailrelay/internal/telemetry"
)

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 64 << 10

// ErrMissingURL is returned by New when no relay URL is configured.
var ErrMissingURL = errors.New("relay URL is required")

// RelayError is a non-2xx answer from the relay.
type RelayError struct {
	StatusCode int
	Message    string
}

func (e *RelayError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("relay returned status %d", e.StatusCode)
}

// Config configures a Client.
type Config struct {
	URL        string
	APIKey     string
	ClientInfo string
	HTTPClient *http.Client
	// Timeout bounds each Send. Zero leaves it to the caller's context.
	Timeout        time.Duration
	Limits         attach.Limits
	Logger         *logger.Logger
	TracerProvider trace.TracerProvider
}

// Client sends drafts to the relay. It does not retry.
type Client struct {
	url        string
	apiKey     string
	clientInfo string
	httpClient *http.Client
	timeout    time.Duration
	encoder    *attach.Encoder
	log        *logger.Logger
	tracer     trace.Tracer
}

var _ compose.Sender = (*Client)(nil)

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, ErrMissingURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		clientInfo: cfg.ClientInfo,
		httpClient: httpClient,
		timeout:    cfg.Timeout,
		encoder:    attach.NewEncoder(cfg.Limits),
		log:        log.WithComponent("gateway"),
		tracer:     telemetry.Tracer(cfg.TracerProvider),
	}, nil
}

// BuildRequest encodes the draft's attachments and maps it onto the wire
// request. Empty optional fields and an empty attachment list are omitted.
func (c *Client) BuildRequest(ctx context.Context, d compose.Draft) (email.EmailRequest, error) {
	attachments, err := c.encoder.Encode(ctx, d.Files())
	if err != nil {
		return email.EmailRequest{}, err
	}

	return email.EmailRequest{
		To:          d.To,
		Subject:     d.Subject,
		Message:     d.Body,
		From:        strings.TrimSpace(d.From),
		Cc:          strings.TrimSpace(d.Cc),
		Bcc:         strings.TrimSpace(d.Bcc),
		Attachments: attachments,
	}, nil
}

// Send posts the draft to the relay and returns the provider result.
func (c *Client) Send(ctx context.Context, d compose.Draft) (res *email.SendResult, err error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := c.tracer.Start(ctx, "gateway.send", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int("mail.attachments", len(d.Attachments))))
	defer func() { telemetry.EndSpan(span, err) }()

	payload, err := c.BuildRequest(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare attachments: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	telemetry.Inject(ctx, req.Header)

	c.log.Debug().
		Str("url", c.url).
		Int("attachments", len(payload.Attachments)).
		Int("bytes", len(body)).
		Msg("posting to relay")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readRelayError(resp)
	}

	// A 2xx without a body means accepted without an id.
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read relay response: %w", err)
	}
	var result email.SendResult
	if len(bytes.TrimSpace(data)) == 0 {
		return &result, nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode relay response: %w", err)
	}
	return &result, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("apikey", c.apiKey)
	}
	if c.clientInfo != "" {
		req.Header.Set("x-client-info", c.clientInfo)
	}
}

// readRelayError prefers the relay's {"error": ...} body, then the raw
// body, then the status text.
func readRelayError(resp *http.Response) *RelayError {
	rerr := &RelayError{StatusCode: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body email.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		rerr.Message = body.Error
		return rerr
	}
	if text := strings.TrimSpace(string(data)); text != "" && !strings.HasPrefix(text, "{") {
		rerr.Message = text
		return rerr
	}
	rerr.Message = http.StatusText(resp.StatusCode)
	return rerr
}
