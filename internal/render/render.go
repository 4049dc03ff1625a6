// Package render turns the plain-text message typed into the composer into
// the HTML body sent to recipients.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

const messageLayout = `<div style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; background: #f5f5f5; padding: 20px;">
  <div style="background: linear-gradient(135deg, #8B4513, #A0826D); padding: 30px; border-radius: 12px 12px 0 0;">
    <h1 style="color: white; margin: 0; font-size: 24px;">{{.Heading}}</h1>
  </div>
  <div style="background: white; padding: 30px; border-radius: 0 0 12px 12px; box-shadow: 0 10px 30px -10px rgba(139, 69, 19, 0.2);">
    <div style="color: #333; font-size: 16px; line-height: 1.6; white-space: pre-wrap;">{{.Body}}</div>
    <hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
    <p style="color: #999; font-size: 14px; margin: 0;">{{.Footer}}</p>
  </div>
</div>
`

var layout = template.Must(template.New("message").Parse(messageLayout))

// Defaults used by Message.
const (
	DefaultHeading = "New Message"
	DefaultFooter  = "Sent via your email system"
)

type layoutData struct {
	Heading string
	Body    template.HTML
	Footer  string
}

// Message renders text inside the standard HTML layout.
func Message(text string) (string, error) {
	return MessageWith(DefaultHeading, text, DefaultFooter)
}

// MessageWith renders text inside the layout with a custom heading and footer.
func MessageWith(heading, text, footer string) (string, error) {
	var buf bytes.Buffer
	err := layout.Execute(&buf, layoutData{
		Heading: heading,
		Body:    Body(text),
		Footer:  footer,
	})
	if err != nil {
		return "", fmt.Errorf("render message: %w", err)
	}
	return buf.String(), nil
}

// Body escapes text for HTML and replaces each line break with <br>.
// CRLF counts as a single break.
func Body(text string) template.HTML {
	escaped := template.HTMLEscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}
