package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shineum/mailrelay/internal/attach"
	"github.com/shineum/mailrelay/internal/compose"
	"github.com/shineum/mailrelay/internal/email"
	"github.com/shineum/mailrelay/internal/inbox"
	"github.com/shineum/mailrelay/internal/notify"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	case "ctrl+o":
		return tea.KeyMsg{Type: tea.KeyCtrlO}
	case "ctrl+d":
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	case "alt+up":
		return tea.KeyMsg{Type: tea.KeyUp, Alt: true}
	case "alt+down":
		return tea.KeyMsg{Type: tea.KeyDown, Alt: true}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive feeds msg to m and runs the returned command once, feeding its
// result back in when it is a message the model understands.
func driveInbox(t *testing.T, m InboxModel, msg tea.Msg) InboxModel {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(InboxModel)
	if cmd != nil {
		if loaded, ok := cmd().(inboxLoadedMsg); ok {
			next, _ = m.Update(loaded)
			m = next.(InboxModel)
		}
	}
	return m
}

func TestInboxModel_ListsAndNavigates(t *testing.T) {
	t.Parallel()

	m := NewInbox(context.Background(), inbox.NewMockSource())
	next, _ := m.Update(m.Init()())
	m = next.(InboxModel)

	view := m.View()
	assert.Contains(t, view, "Project Update - Q4 Review")
	assert.Contains(t, view, "Inbox (2)")

	m = driveInbox(t, m, key("tab"))
	assert.Equal(t, inbox.FolderStarred, m.Folder())
	assert.Contains(t, m.View(), "Meeting Notes from Yesterday")
	assert.NotContains(t, m.View(), "Budget Approval")

	m = driveInbox(t, m, key("tab"))
	assert.Equal(t, inbox.FolderSnoozed, m.Folder())
	assert.Contains(t, m.View(), "No messages in Snoozed")
}

func TestInboxModel_StarAndRead(t *testing.T) {
	t.Parallel()

	src := inbox.NewMockSource()
	m := NewInbox(context.Background(), src)
	next, _ := m.Update(m.Init()())
	m = next.(InboxModel)

	m = driveInbox(t, m, key("down"))
	m = driveInbox(t, m, key("down"))
	m = driveInbox(t, m, key("s"))

	msg, err := src.Get(context.Background(), "3")
	require.NoError(t, err)
	assert.True(t, msg.Starred)

	m = driveInbox(t, m, key("enter"))
	view := m.View()
	assert.Contains(t, view, "Re: Budget Approval")
	assert.Contains(t, view, "mike@example.com")
	assert.Contains(t, view, "MJ")

	m = driveInbox(t, m, key("esc"))
	assert.Contains(t, m.View(), "Project Update - Q4 Review")
}

type stubSender struct {
	err error
}

func (s stubSender) Send(context.Context, compose.Draft) (*email.SendResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &email.SendResult{ID: "msg_1"}, nil
}

func newComposeModel(variant compose.Variant, sender compose.Sender) (ComposeModel, *compose.Form) {
	rec := &notify.Recorder{}
	form := compose.New(compose.Config{Variant: variant, Sender: sender, Sink: rec})
	return NewCompose(context.Background(), form, rec), form
}

func submit(t *testing.T, m ComposeModel) (ComposeModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.submit()
	m = next.(ComposeModel)
	require.True(t, m.sending)
	require.NotNil(t, cmd)
	next, cmd = m.Update(cmd())
	return next.(ComposeModel), cmd
}

func TestComposeModel_SuccessfulModalSendQuits(t *testing.T) {
	t.Parallel()

	m, form := newComposeModel(compose.VariantModal, stubSender{})
	assert.Equal(t, compose.WindowFull, form.Window())

	m.fb.to, m.fb.subject, m.fb.body = "a@b.com", "Hi", "Hello"
	m, cmd := submit(t, m)

	assert.True(t, m.Done())
	assert.NotNil(t, cmd)
	status, ok := m.Status()
	require.True(t, ok)
	assert.Equal(t, "Your email has been sent to a@b.com", status.Description)
	assert.Equal(t, compose.Draft{}, form.Draft())
}

func TestComposeModel_FailureKeepsBindings(t *testing.T) {
	t.Parallel()

	m, form := newComposeModel(compose.VariantModal, stubSender{err: errors.New("domain not verified")})
	m.fb.to, m.fb.subject, m.fb.body = "a@b.com", "Hi", "Hello"
	m, _ = submit(t, m)

	assert.False(t, m.Done())
	assert.False(t, m.sending)
	assert.Equal(t, "a@b.com", m.fb.to)
	assert.Equal(t, "Hello", form.Draft().Body)
	assert.Contains(t, m.View(), "domain not verified")
}

func TestComposeModel_MissingFieldsShowsNotification(t *testing.T) {
	t.Parallel()

	m, _ := newComposeModel(compose.VariantModal, stubSender{})
	m.fb.subject = "Hi"
	m, _ = submit(t, m)

	status, ok := m.Status()
	require.True(t, ok)
	assert.Equal(t, "Missing fields", status.Title)
	assert.Contains(t, m.View(), "Please fill in all required fields")
}

func TestComposeModel_PageVariantStaysOpen(t *testing.T) {
	t.Parallel()

	m, form := newComposeModel(compose.VariantPage, stubSender{})
	m.fb.to, m.fb.subject, m.fb.body, m.fb.from = "a@b.com", "Hi", "Hello", "me@b.com"
	m, _ = submit(t, m)

	assert.False(t, m.Done())
	assert.Equal(t, compose.WindowFull, form.Window())
	assert.Empty(t, m.fb.to)
	assert.Contains(t, m.View(), "Send Email")
}

func TestComposeModel_BadAttachmentPathBlocksSend(t *testing.T) {
	t.Parallel()

	m, _ := newComposeModel(compose.VariantModal, stubSender{})
	m.fb.to, m.fb.subject, m.fb.body = "a@b.com", "Hi", "Hello"
	m.fb.files = "/definitely/not/here.txt"

	next, _ := m.submit()
	m = next.(ComposeModel)
	assert.False(t, m.sending)
	status, ok := m.Status()
	require.True(t, ok)
	assert.Equal(t, notify.LevelError, status.Level)
}

func TestComposeModel_MinimizeAndToggleCc(t *testing.T) {
	t.Parallel()

	m, form := newComposeModel(compose.VariantModal, stubSender{})

	next, _ := m.Update(key("ctrl+o"))
	m = next.(ComposeModel)
	assert.True(t, form.FieldVisible(compose.FieldCc))

	next, _ = m.Update(key("ctrl+t"))
	m = next.(ComposeModel)
	assert.Equal(t, compose.WindowMinimized, form.Window())
	assert.Contains(t, m.View(), "ctrl+t restore")

	next, _ = m.Update(key("ctrl+t"))
	m = next.(ComposeModel)
	assert.Equal(t, compose.WindowFull, form.Window())
}

func TestComposeModel_RemovesSelectedAttachment(t *testing.T) {
	t.Parallel()

	m, form := newComposeModel(compose.VariantModal, stubSender{})
	require.NoError(t, form.AddFiles(
		attach.NewMemFile("a.txt", []byte("a")),
		attach.NewMemFile("b.txt", []byte("b")),
		attach.NewMemFile("c.txt", []byte("c")),
	))

	press := func(k string) {
		next, _ := m.Update(key(k))
		m = next.(ComposeModel)
	}

	press("alt+down")
	assert.Contains(t, m.View(), "> 2. b.txt")
	press("ctrl+d")

	names := func() []string {
		var out []string
		for _, a := range form.Draft().Attachments {
			out = append(out, a.File.Name())
		}
		return out
	}
	assert.Equal(t, []string{"a.txt", "c.txt"}, names())

	press("alt+down")
	press("alt+down")
	press("ctrl+d")
	assert.Equal(t, []string{"a.txt"}, names())

	press("alt+up")
	press("ctrl+d")
	assert.Empty(t, names())

	press("ctrl+d")
	_, ok := m.Status()
	assert.False(t, ok)
}

func TestComposeModel_EscDiscards(t *testing.T) {
	t.Parallel()

	m, form := newComposeModel(compose.VariantModal, stubSender{})
	m.fb.to = "a@b.com"
	m.store()

	next, cmd := m.Update(key("esc"))
	m = next.(ComposeModel)
	assert.True(t, m.Done())
	assert.NotNil(t, cmd)
	assert.Equal(t, compose.WindowClosed, form.Window())
	assert.Empty(t, form.Draft().To)
}

func TestSplitPathsAndFormatSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a.txt", "b c.pdf"}, splitPaths(" a.txt, ,b c.pdf "))
	assert.Nil(t, splitPaths(""))
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2<<20))
}
