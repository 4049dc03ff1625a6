// Package stdout implements a Provider that prints emails to a writer
// instead of delivering them.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/shineum/mailrelay/internal/email"
)

// Format selects how messages are printed.
type Format int

const (
	// FormatSummary prints a short human-readable block per message.
	FormatSummary Format = iota
	// FormatEML prints the full RFC 5322 message as it would go on the wire.
	FormatEML
)

// Provider prints email messages in place of delivering them. Every message
// is assigned a fresh UUID so callers see the same result shape as from a
// real provider.
type Provider struct {
	mu     sync.Mutex
	writer io.Writer
	format Format
}

// New creates a stdout Provider that prints summaries to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout, format: FormatSummary}
}

// NewWithWriter creates a Provider that writes to w in the given format.
func NewWithWriter(w io.Writer, format Format) *Provider {
	return &Provider{writer: w, format: format}
}

// Send prints the message and returns a generated message ID.
func (p *Provider) Send(ctx context.Context, msg *email.Email) (*email.SendResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.NewString()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.format == FormatEML {
		out := *msg
		if out.MessageID == "" {
			out.MessageID = id + "@mailrelay"
		}
		if err := email.WriteMIME(p.writer, &out); err != nil {
			return nil, fmt.Errorf("failed to write message: %w", err)
		}
		fmt.Fprintln(p.writer)
		return &email.SendResult{ID: id}, nil
	}

	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString(fmt.Sprintf("ID: %s\n", id))
	b.WriteString(fmt.Sprintf("From: %s\n", msg.From))
	b.WriteString(fmt.Sprintf("To: %s\n", strings.Join(msg.To, ", ")))

	if len(msg.Cc) > 0 {
		b.WriteString(fmt.Sprintf("Cc: %s\n", strings.Join(msg.Cc, ", ")))
	}
	if len(msg.Bcc) > 0 {
		b.WriteString(fmt.Sprintf("Bcc: %s\n", strings.Join(msg.Bcc, ", ")))
	}

	b.WriteString(fmt.Sprintf("Subject: %s\n", msg.Subject))
	b.WriteString("Body:\n")

	body := msg.TextBody
	if body == "" {
		body = msg.HtmlBody
	}
	b.WriteString(body + "\n")

	if len(msg.Attachments) > 0 {
		attachments := make([]string, 0, len(msg.Attachments))
		for _, att := range msg.Attachments {
			attachments = append(attachments, fmt.Sprintf("%s (%s)", att.Filename, formatSize(len(att.Content))))
		}
		b.WriteString(fmt.Sprintf("Attachments: %s\n", strings.Join(attachments, ", ")))
	}

	b.WriteString("========================================\n")

	// A failed write still counts as accepted; there is nowhere else to report it.
	_, _ = fmt.Fprint(p.writer, b.String())

	return &email.SendResult{ID: id}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
