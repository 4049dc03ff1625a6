package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello", "hello"},
		{"newlines", "line1\nline2\n\nline4", "line1<br>line2<br><br>line4"},
		{"crlf", "a\r\nb", "a<br>b"},
		{"escapes markup", "<script>alert(1)</script>", "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{"ampersand and quotes", `Tom & "Jerry"`, "Tom &amp; &#34;Jerry&#34;"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(Body(tt.in)))
		})
	}
}

func TestMessage(t *testing.T) {
	t.Parallel()

	out, err := Message("Hi team,\nsee you <soon>")
	require.NoError(t, err)

	assert.Contains(t, out, "Hi team,<br>see you &lt;soon&gt;")
	assert.Contains(t, out, ">New Message</h1>")
	assert.Contains(t, out, "Sent via your email system")
	assert.True(t, strings.HasPrefix(out, "<div"))
}

func TestMessageWith_EscapesHeadingAndFooter(t *testing.T) {
	t.Parallel()

	out, err := MessageWith("<b>Alert</b>", "body", "from <me>")
	require.NoError(t, err)

	assert.Contains(t, out, "&lt;b&gt;Alert&lt;/b&gt;")
	assert.Contains(t, out, "from &lt;me&gt;")
}
