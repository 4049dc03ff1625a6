package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/shineum/mailrelay/internal/email"
)

// GraphProviderConfig holds the configuration for creating a GraphProvider.
type GraphProviderConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	Sender       string
	Logger       *zerolog.Logger
}

// maxRetries is the maximum number of retry attempts for transient failures.
const maxRetries = 3

// baseRetryDelay is the initial delay for exponential backoff.
const baseRetryDelay = 1 * time.Second

// tokenExpiryBuffer is how long before expiry a cached token is replaced.
const tokenExpiryBuffer = 5 * time.Minute

const graphScope = "https://graph.microsoft.com/.default"

// GraphProvider sends emails via the Microsoft Graph API using OAuth2
// client credentials authentication.
type GraphProvider struct {
	sender     string
	graphURL   string
	httpClient *http.Client
	creds      *clientcredentials.Config
	log        zerolog.Logger
	retryDelay time.Duration

	mu     sync.Mutex
	tokens oauth2.TokenSource
}

// New creates a new GraphProvider with the given configuration.
func New(cfg GraphProviderConfig) *GraphProvider {
	tokenURL := fmt.Sprintf(
		"https://login.microsoftonline.com/%s/oauth2/v2.0/token",
		cfg.TenantID,
	)
	graphURL := fmt.Sprintf("https://graph.microsoft.com/v1.0/users/%s/sendMail", cfg.Sender)

	p := newWithOverrides(cfg, graphURL, tokenURL, &http.Client{Timeout: 30 * time.Second})
	if cfg.Logger != nil {
		p.log = cfg.Logger.With().Str("provider", "msgraph").Logger()
	}
	return p
}

// newWithOverrides creates a GraphProvider with custom URLs and HTTP client,
// used for testing.
func newWithOverrides(cfg GraphProviderConfig, graphURL, tokenURL string, client *http.Client) *GraphProvider {
	p := &GraphProvider{
		sender:     cfg.Sender,
		graphURL:   graphURL,
		httpClient: client,
		creds: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{graphScope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		log:        zerolog.Nop(),
		retryDelay: baseRetryDelay,
	}
	p.resetTokenSource()
	return p
}

// resetTokenSource drops any cached token so the next request fetches a new one.
func (g *GraphProvider) resetTokenSource() {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, g.httpClient)

	g.mu.Lock()
	g.tokens = oauth2.ReuseTokenSourceWithExpiry(nil, g.creds.TokenSource(ctx), tokenExpiryBuffer)
	g.mu.Unlock()
}

func (g *GraphProvider) token() (*oauth2.Token, error) {
	g.mu.Lock()
	src := g.tokens
	g.mu.Unlock()
	return src.Token()
}

// Send delivers an email message via the Microsoft Graph API.
// It includes retry logic with exponential backoff for transient failures,
// Retry-After header respect for HTTP 429, and one token refresh on HTTP 401.
func (g *GraphProvider) Send(ctx context.Context, msg *email.Email) (*email.SendResult, error) {
	reqBody := buildSendMailRequest(msg)
	bodyJSON, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	var lastErr error
	tokenRefreshed := false

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.log.Debug().
				Int("attempt", attempt).
				Int("max_retries", maxRetries).
				Msg("retrying Graph API request")
		}

		id, err := g.doSendRequest(ctx, bodyJSON)
		if err == nil {
			return &email.SendResult{ID: id}, nil
		}

		lastErr = err

		var graphErr *sendError
		if !errors.As(err, &graphErr) {
			return nil, err
		}

		switch {
		case graphErr.permanent:
			return nil, graphErr
		case graphErr.statusCode == http.StatusUnauthorized && !tokenRefreshed:
			g.log.Info().Msg("refreshing Graph API token after 401")
			g.resetTokenSource()
			tokenRefreshed = true
			continue
		case graphErr.statusCode == http.StatusTooManyRequests:
			delay := g.retryAfterDelay(graphErr.retryAfter, attempt)
			g.log.Info().Dur("retry_after", delay).Msg("rate limited by Graph API")
			if err := sleepWithContext(ctx, delay); err != nil {
				return nil, fmt.Errorf("context cancelled during retry wait: %w", err)
			}
			continue
		case graphErr.transient:
			delay := g.backoffDelay(attempt)
			g.log.Info().
				Int("status", graphErr.statusCode).
				Dur("delay", delay).
				Msg("transient Graph API error, retrying")
			if err := sleepWithContext(ctx, delay); err != nil {
				return nil, fmt.Errorf("context cancelled during retry wait: %w", err)
			}
			continue
		default:
			return nil, graphErr
		}
	}

	return nil, fmt.Errorf("Graph API request failed after %d retries: %w", maxRetries, lastErr)
}

// Name returns the provider name.
func (g *GraphProvider) Name() string {
	return "msgraph"
}

// doSendRequest performs a single HTTP request to the Graph API sendMail
// endpoint. sendMail returns no message ID, so the request-id response
// header stands in for one.
func (g *GraphProvider) doSendRequest(ctx context.Context, bodyJSON []byte) (string, error) {
	tok, err := g.token()
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.graphURL, bytes.NewReader(bodyJSON))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	clientRequestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("client-request-id", clientRequestID)
	tok.SetAuthHeader(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &sendError{
			message:   fmt.Sprintf("HTTP request failed: %v", err),
			transient: true,
		}
	}
	defer resp.Body.Close()

	// HTTP 202 Accepted is success for sendMail
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		if id := resp.Header.Get("request-id"); id != "" {
			return id, nil
		}
		return clientRequestID, nil
	}

	body, _ := io.ReadAll(resp.Body)

	var graphErrResp graphErrorResponse
	if jsonErr := json.Unmarshal(body, &graphErrResp); jsonErr == nil && graphErrResp.Error.Message != "" {
		return "", classifyError(resp.StatusCode, graphErrResp.Error.Message, resp.Header.Get("Retry-After"))
	}

	return "", classifyError(resp.StatusCode, string(body), resp.Header.Get("Retry-After"))
}

// sendError represents an error from the Graph API send operation with
// classification for retry logic.
type sendError struct {
	message    string
	statusCode int
	permanent  bool
	transient  bool
	retryAfter string
}

func (e *sendError) Error() string {
	return fmt.Sprintf("Graph API error (HTTP %d): %s", e.statusCode, e.message)
}

// classifyError categorizes an HTTP error response for retry decisions.
func classifyError(statusCode int, message, retryAfter string) *sendError {
	err := &sendError{
		message:    message,
		statusCode: statusCode,
		retryAfter: retryAfter,
	}

	switch {
	case statusCode == http.StatusBadRequest || statusCode == http.StatusForbidden:
		err.permanent = true
	case statusCode == http.StatusUnauthorized:
		err.transient = true
	case statusCode == http.StatusTooManyRequests:
		err.transient = true
	case statusCode >= 500:
		err.transient = true
	default:
		err.permanent = true
	}

	return err
}

// retryAfterDelay parses the Retry-After header value and returns the appropriate delay.
// Falls back to exponential backoff if the header is missing or unparseable.
func (g *GraphProvider) retryAfterDelay(retryAfter string, attempt int) time.Duration {
	if retryAfter == "" {
		return g.backoffDelay(attempt)
	}

	seconds, err := strconv.Atoi(retryAfter)
	if err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return g.backoffDelay(attempt)
}

// backoffDelay returns the exponential backoff delay for the given attempt number.
// With the default base the delays are 1s, 2s, 4s.
func (g *GraphProvider) backoffDelay(attempt int) time.Duration {
	delay := g.retryDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// sleepWithContext waits for the specified duration or until the context is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
