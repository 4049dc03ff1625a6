// Package compose holds the state of a message being written and drives
// its submission to the relay.
package compose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shineum/mailrelay/internal/attach"
)

// ErrMissingFields is returned when To, Subject or Body is blank.
var ErrMissingFields = errors.New("missing required fields")

// Draft is the message under composition. Cc, Bcc and From are optional
// and never format-checked.
type Draft struct {
	To          string
	Cc          string
	Bcc         string
	From        string
	Subject     string
	Body        string
	Attachments []attach.Attachment
}

// Missing lists the required fields that are blank after trimming.
func (d Draft) Missing() []string {
	var missing []string
	if strings.TrimSpace(d.To) == "" {
		missing = append(missing, "to")
	}
	if strings.TrimSpace(d.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(d.Body) == "" {
		missing = append(missing, "body")
	}
	return missing
}

// Validate returns ErrMissingFields, naming the blank fields, when the
// draft cannot be sent.
func (d Draft) Validate() error {
	if missing := d.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	return nil
}

// Files returns the files behind the draft's attachments.
func (d Draft) Files() []attach.File {
	return attach.Files(d.Attachments)
}
