// Package parser reads RFC 5322 messages, such as saved .eml files, into
// the shared email model.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog/log"

	"github.com/shineum/mailrelay/internal/email"
)

// ErrMissingBoundary is returned for a multipart message without a boundary.
var ErrMissingBoundary = errors.New("multipart message missing boundary")

// ErrNoHeaders is returned when the input carries no header fields.
var ErrNoHeaders = errors.New("message has no header fields")

// Parse parses a raw RFC 5322 message.
func Parse(raw []byte) (*email.Email, error) {
	return ParseReader(bytes.NewReader(raw))
}

// ParseReader parses a message from r. The first text/plain and text/html
// parts become the bodies; everything with an attachment disposition, or
// that is neither text type, becomes an attachment. Nested multiparts are
// walked depth first.
func ParseReader(r io.Reader) (*email.Email, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	defer mr.Close()

	if mr.Header.Len() == 0 {
		return nil, ErrNoHeaders
	}

	if t, params, err := mr.Header.ContentType(); err == nil && strings.HasPrefix(t, "multipart/") && params["boundary"] == "" {
		return nil, ErrMissingBoundary
	}

	result := &email.Email{
		From:      firstAddress(&mr.Header, "From"),
		To:        addressList(&mr.Header, "To"),
		Cc:        addressList(&mr.Header, "Cc"),
		Bcc:       addressList(&mr.Header, "Bcc"),
		MessageID: mr.Header.Get("Message-Id"),
	}
	if result.Subject, err = mr.Header.Subject(); err != nil {
		result.Subject = mr.Header.Get("Subject")
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return nil, fmt.Errorf("failed to read next part: %w", err)
		}

		h := partHeader(part)
		mediaType, params, ctErr := h.ContentType()
		if ctErr != nil || mediaType == "" {
			mediaType = "text/plain"
		}
		disposition, _, _ := h.ContentDisposition()

		content, err := io.ReadAll(part.Body)
		if err != nil {
			log.Warn().Err(err).Str("content_type", mediaType).Msg("failed to read part content")
			continue
		}

		if disposition != "attachment" {
			switch mediaType {
			case "text/plain":
				if result.TextBody == "" {
					result.TextBody = string(content)
				}
				continue
			case "text/html":
				if result.HtmlBody == "" {
					result.HtmlBody = string(content)
				}
				continue
			}
		}

		result.Attachments = append(result.Attachments, email.Attachment{
			Filename:    filename(h, mediaType, params),
			ContentType: mediaType,
			Content:     content,
		})
	}

	return result, nil
}

func partHeader(p *mail.Part) message.Header {
	switch h := p.Header.(type) {
	case *mail.InlineHeader:
		return h.Header
	case *mail.AttachmentHeader:
		return h.Header
	}
	return message.Header{}
}

// filename returns the part's declared file name, or one derived from its
// media type. Graph requires every attachment to carry a name.
func filename(h message.Header, mediaType string, params map[string]string) string {
	ah := mail.AttachmentHeader{Header: h}
	if fn, _ := ah.Filename(); fn != "" {
		return fn
	}
	if name := params["name"]; name != "" {
		return name
	}
	if _, sub, ok := strings.Cut(mediaType, "/"); ok && sub != "" {
		return "attachment." + sub
	}
	return "attachment"
}

func firstAddress(h *mail.Header, key string) string {
	if list := addressList(h, key); len(list) > 0 {
		return list[0]
	}
	return ""
}

// addressList returns the bare addresses in header key, falling back to a
// comma split when the field does not parse.
func addressList(h *mail.Header, key string) []string {
	raw := h.Get(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	addrs, err := h.AddressList(key)
	if err != nil || len(addrs) == 0 {
		return email.SplitAddresses(raw)
	}

	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Address)
	}
	return out
}
