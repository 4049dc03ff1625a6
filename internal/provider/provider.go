// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"

	"github.com/shineum/mailrelay/internal/email"
)

// Provider is the interface that email delivery backends must implement.
// Each provider hands a resolved message to the target service
// (e.g., Resend, AWS SES, Microsoft Graph, or stdout).
type Provider interface {
	// Send delivers an email message through this provider and reports
	// the identifier the service assigned to it.
	Send(ctx context.Context, msg *email.Email) (*email.SendResult, error)

	// Name returns the human-readable name of this provider.
	Name() string
}
