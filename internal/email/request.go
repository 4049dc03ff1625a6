package email

import (
	"encoding/base64"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// EmailRequest is the JSON body the compose client posts to the relay.
// Every optional field is omitted from the wire when empty; in particular a
// nil Attachments slice produces no "attachments" key at all.
type EmailRequest struct {
	To          string              `json:"to"`
	Subject     string              `json:"subject"`
	Message     string              `json:"message"`
	From        string              `json:"from,omitempty"`
	Cc          string              `json:"cc,omitempty"`
	Bcc         string              `json:"bcc,omitempty"`
	Attachments []EncodedAttachment `json:"attachments,omitempty"`
}

// EncodedAttachment is the wire form of an attachment. Content holds the
// bare base64 payload without any data-URI header.
type EncodedAttachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// ErrorResponse is the body the relay returns on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Decode converts the wire attachment back into raw bytes. The content type
// is derived from the filename extension.
func (a EncodedAttachment) Decode() (Attachment, error) {
	raw, err := base64.StdEncoding.DecodeString(a.Content)
	if err != nil {
		return Attachment{}, fmt.Errorf("attachment %q: invalid base64 content: %w", a.Filename, err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(a.Filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return Attachment{
		Filename:    a.Filename,
		ContentType: contentType,
		Content:     raw,
	}, nil
}

// SplitAddresses splits a comma or semicolon separated address field into
// trimmed, non-empty entries. An empty field yields nil.
func SplitAddresses(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}

	parts := strings.FieldsFunc(field, func(r rune) bool {
		return r == ',' || r == ';'
	})

	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
