// Package email defines the message model shared by the relay, the delivery
// providers and the compose client.
package email

// Email is a fully resolved message ready to be handed to a delivery provider.
type Email struct {
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	TextBody    string
	HtmlBody    string
	Attachments []Attachment
	MessageID   string
}

// Attachment is a decoded file carried by an Email.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// SendResult is what a provider reports after accepting a message.
// ID is the provider-assigned message identifier.
type SendResult struct {
	ID string `json:"id"`
}
