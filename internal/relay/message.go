package relay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shineum/mailrelay/internal/config"
	"github.com/shineum/mailrelay/internal/email"
	"github.com/shineum/mailrelay/internal/render"
)

// ErrInvalidRequest marks failures caused by the request body rather than
// by the delivery provider.
var ErrInvalidRequest = errors.New("invalid request")

// BuildEmail validates req and resolves it into a provider-ready message.
// The sender falls back to defaultFrom, then to config.DefaultSender.
// The message text becomes both the plain body and the HTML layout body.
func BuildEmail(req email.EmailRequest, defaultFrom string) (*email.Email, error) {
	var missing []string
	if strings.TrimSpace(req.To) == "" {
		missing = append(missing, "to")
	}
	if strings.TrimSpace(req.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(req.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required fields: %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}

	from := strings.TrimSpace(req.From)
	if from == "" {
		from = defaultFrom
	}
	if from == "" {
		from = config.DefaultSender
	}

	html, err := render.Message(req.Message)
	if err != nil {
		return nil, err
	}

	msg := &email.Email{
		From:     from,
		To:       email.SplitAddresses(req.To),
		Cc:       email.SplitAddresses(req.Cc),
		Bcc:      email.SplitAddresses(req.Bcc),
		Subject:  req.Subject,
		TextBody: req.Message,
		HtmlBody: html,
	}

	if len(req.Attachments) > 0 {
		msg.Attachments = make([]email.Attachment, 0, len(req.Attachments))
		for _, enc := range req.Attachments {
			att, err := enc.Decode()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
			}
			msg.Attachments = append(msg.Attachments, att)
		}
	}

	return msg, nil
}
