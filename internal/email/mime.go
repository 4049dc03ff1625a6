package email

import (
	"fmt"
	"io"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

// WriteMIME serializes msg as an RFC 5322 message. A message with a single
// body and no attachments is written as one inline part; otherwise the
// result is multipart/mixed with the bodies grouped in an inline section.
// Bcc recipients never appear in the headers.
func WriteMIME(w io.Writer, msg *Email) error {
	h := msg.header()

	single := len(msg.Attachments) == 0 && (msg.TextBody == "" || msg.HtmlBody == "")
	if single {
		contentType, body := "text/plain", msg.TextBody
		if msg.HtmlBody != "" {
			contentType, body = "text/html", msg.HtmlBody
		}
		h.SetContentType(contentType, map[string]string{"charset": "utf-8"})
		h.Set("Content-Transfer-Encoding", "quoted-printable")

		bw, err := mail.CreateSingleInlineWriter(w, h)
		if err != nil {
			return fmt.Errorf("failed to create message writer: %w", err)
		}
		if _, err := io.WriteString(bw, body); err != nil {
			return fmt.Errorf("failed to write body: %w", err)
		}
		return bw.Close()
	}

	mw, err := mail.CreateWriter(w, h)
	if err != nil {
		return fmt.Errorf("failed to create message writer: %w", err)
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("failed to create inline section: %w", err)
	}
	for _, part := range []struct{ contentType, body string }{
		{"text/plain", msg.TextBody},
		{"text/html", msg.HtmlBody},
	} {
		if part.body == "" {
			continue
		}
		var ph mail.InlineHeader
		ph.SetContentType(part.contentType, map[string]string{"charset": "utf-8"})
		ph.Set("Content-Transfer-Encoding", "quoted-printable")
		pw, err := iw.CreatePart(ph)
		if err != nil {
			return fmt.Errorf("failed to create %s part: %w", part.contentType, err)
		}
		if _, err := io.WriteString(pw, part.body); err != nil {
			return fmt.Errorf("failed to write %s part: %w", part.contentType, err)
		}
		if err := pw.Close(); err != nil {
			return err
		}
	}
	if err := iw.Close(); err != nil {
		return err
	}

	for _, att := range msg.Attachments {
		var ah mail.AttachmentHeader
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		ah.SetContentType(contentType, nil)
		ah.SetFilename(att.Filename)
		ah.Set("Content-Transfer-Encoding", "base64")

		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return fmt.Errorf("failed to create attachment part %q: %w", att.Filename, err)
		}
		if _, err := aw.Write(att.Content); err != nil {
			return fmt.Errorf("failed to write attachment %q: %w", att.Filename, err)
		}
		if err := aw.Close(); err != nil {
			return err
		}
	}

	return mw.Close()
}

func (e *Email) header() mail.Header {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetSubject(e.Subject)
	if e.From != "" {
		h.SetAddressList("From", toAddresses([]string{e.From}))
	}
	if len(e.To) > 0 {
		h.SetAddressList("To", toAddresses(e.To))
	}
	if len(e.Cc) > 0 {
		h.SetAddressList("Cc", toAddresses(e.Cc))
	}
	if e.MessageID != "" {
		h.SetMessageID(strings.Trim(e.MessageID, "<>"))
	}
	return h
}

// toAddresses parses each entry as an RFC 5322 address, keeping entries
// that do not parse as bare addresses so nothing is silently dropped.
func toAddresses(list []string) []*mail.Address {
	out := make([]*mail.Address, 0, len(list))
	for _, s := range list {
		if a, err := netmail.ParseAddress(s); err == nil {
			out = append(out, &mail.Address{Name: a.Name, Address: a.Address})
			continue
		}
		out = append(out, &mail.Address{Address: strings.TrimSpace(s)})
	}
	return out
}
