// Package resend implements a Provider that delivers email through the
// Resend HTTP API.
package resend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/shineum/mailrelay/internal/email"
)

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("resend: API key is required")

// EmailSender is the subset of the Resend emails service the provider uses.
// Used for testing with mock implementations.
type EmailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Config holds the configuration for creating a Provider.
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint, e.g. for a local mock.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Provider sends email through Resend. The API key is bound once at
// construction and never re-read.
type Provider struct {
	emails EmailSender
	log    zerolog.Logger
}

// New creates a Provider backed by a Resend API client.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	var client *resend.Client
	if cfg.HTTPClient != nil {
		client = resend.NewCustomClient(cfg.HTTPClient, cfg.APIKey)
	} else {
		client = resend.NewClient(cfg.APIKey)
	}

	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid resend base URL: %w", err)
		}
		client.BaseURL = u
	}

	p := NewWithClient(client.Emails)
	if cfg.Logger != nil {
		p.log = cfg.Logger.With().Str("provider", "resend").Logger()
	}
	return p, nil
}

// NewWithClient creates a Provider around an existing sender, used for testing.
func NewWithClient(emails EmailSender) *Provider {
	return &Provider{emails: emails, log: zerolog.Nop()}
}

// Send delivers msg and returns the Resend message ID.
func (p *Provider) Send(ctx context.Context, msg *email.Email) (*email.SendResult, error) {
	req := buildRequest(msg)

	resp, err := p.emails.SendWithContext(ctx, req)
	if err != nil {
		p.log.Warn().Err(err).Strs("to", msg.To).Msg("Resend API error")
		return nil, fmt.Errorf("resend: %w", err)
	}

	p.log.Debug().Str("id", resp.Id).Int("attachments", len(req.Attachments)).Msg("email accepted by Resend")
	return &email.SendResult{ID: resp.Id}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "resend"
}

func buildRequest(msg *email.Email) *resend.SendEmailRequest {
	req := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Cc:      msg.Cc,
		Bcc:     msg.Bcc,
		Subject: msg.Subject,
		Html:    msg.HtmlBody,
		Text:    msg.TextBody,
	}

	if len(msg.Attachments) > 0 {
		req.Attachments = make([]*resend.Attachment, 0, len(msg.Attachments))
		for _, att := range msg.Attachments {
			req.Attachments = append(req.Attachments, &resend.Attachment{
				Filename: att.Filename,
				Content:  att.Content,
			})
		}
	}

	return req
}
