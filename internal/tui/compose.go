package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/shineum/mailrelay/internal/attach"
	"github.com/shineum/mailrelay/internal/compose"
	"github.com/shineum/mailrelay/internal/email"
	"github.com/shineum/mailrelay/internal/notify"
)

// SentMsg carries the outcome of a Submit back into the update loop.
type SentMsg struct {
	Result *email.SendResult
	Err    error
}

// formBindings holds field values on the heap so huh's Value pointers stay
// valid across model copies.
type formBindings struct {
	to      string
	cc      string
	bcc     string
	from    string
	subject string
	body    string
	files   string
}

// ComposeModel edits one compose.Form. Notifications raised by the form
// are read back from the Recorder it was built with.
type ComposeModel struct {
	ctx     context.Context
	form    *compose.Form
	notes   *notify.Recorder
	fb      *formBindings
	hf      *huh.Form
	status  *notify.Notification
	attSel  int
	sending bool
	done    bool
	width   int
	height  int
}

// NewCompose returns a model for form. notes must be the form's sink.
func NewCompose(ctx context.Context, form *compose.Form, notes *notify.Recorder) ComposeModel {
	m := ComposeModel{
		ctx:    ctx,
		form:   form,
		notes:  notes,
		fb:     &formBindings{},
		width:  80,
		height: 24,
	}
	m.form.Open()
	m.load()
	m.hf = m.buildForm()
	return m
}

func (m ComposeModel) Init() tea.Cmd {
	return m.hf.Init()
}

// Done reports whether the composer has finished, by sending or by abort.
func (m ComposeModel) Done() bool { return m.done }

// Status returns the last notification shown, if any.
func (m ComposeModel) Status() (notify.Notification, bool) {
	if m.status == nil {
		return notify.Notification{}, false
	}
	return *m.status, true
}

func (m ComposeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.hf = m.hf.WithWidth(m.formWidth())
		return m, nil

	case SentMsg:
		return m.handleSent(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.form.Close()
			m.done = true
			return m, tea.Quit
		case "ctrl+t":
			m.form.ToggleMinimize()
			return m, nil
		case "ctrl+f":
			m.form.ToggleMaximize()
			m.hf = m.hf.WithWidth(m.formWidth())
			return m, nil
		}
		if m.sending || m.form.Window() == compose.WindowMinimized {
			return m, nil
		}
		if m.form.Variant() == compose.VariantModal {
			switch msg.String() {
			case "ctrl+o":
				return m.toggleField(compose.FieldCc)
			case "ctrl+b":
				return m.toggleField(compose.FieldBcc)
			case "alt+up":
				return m.moveAttachmentSelection(-1), nil
			case "alt+down":
				return m.moveAttachmentSelection(1), nil
			case "ctrl+d":
				return m.removeSelectedAttachment()
			}
		}
	}

	if m.sending {
		return m, nil
	}

	mdl, cmd := m.hf.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.hf = f
	}

	switch m.hf.State {
	case huh.StateCompleted:
		return m.submit()
	case huh.StateAborted:
		m.form.Close()
		m.done = true
		return m, tea.Quit
	}
	return m, cmd
}

func (m ComposeModel) submit() (tea.Model, tea.Cmd) {
	m.store()
	if err := m.attachFiles(); err != nil {
		m.status = &notify.Notification{Title: "Could not attach files", Description: err.Error(), Level: notify.LevelError}
		m.hf = m.buildForm()
		return m, m.hf.Init()
	}

	m.sending = true
	m.status = nil
	form, ctx := m.form, m.ctx
	return m, func() tea.Msg {
		res, err := form.Submit(ctx)
		return SentMsg{Result: res, Err: err}
	}
}

func (m ComposeModel) handleSent(msg SentMsg) (tea.Model, tea.Cmd) {
	m.sending = false
	if n, ok := m.notes.Last(); ok {
		m.status = &n
	}

	if msg.Err == nil && m.form.Window() == compose.WindowClosed {
		m.done = true
		return m, tea.Quit
	}

	m = m.moveAttachmentSelection(0)
	m.load()
	m.hf = m.buildForm()
	return m, m.hf.Init()
}

func (m ComposeModel) toggleField(f compose.Field) (tea.Model, tea.Cmd) {
	m.store()
	m.form.ToggleField(f)
	m.hf = m.buildForm()
	return m, m.hf.Init()
}

// moveAttachmentSelection moves the highlighted attachment by delta,
// clamped to the list.
func (m ComposeModel) moveAttachmentSelection(delta int) ComposeModel {
	n := len(m.form.Draft().Attachments)
	if n == 0 {
		m.attSel = 0
		return m
	}
	m.attSel = min(max(m.attSel+delta, 0), n-1)
	return m
}

func (m ComposeModel) removeSelectedAttachment() (tea.Model, tea.Cmd) {
	if len(m.form.Draft().Attachments) == 0 {
		return m, nil
	}
	if err := m.form.RemoveAttachment(m.attSel); err != nil {
		m.status = &notify.Notification{Title: "Could not remove attachment", Description: err.Error(), Level: notify.LevelError}
	}
	return m.moveAttachmentSelection(0), nil
}

// store copies the bound field values into the compose form.
func (m ComposeModel) store() {
	m.form.SetTo(m.fb.to)
	m.form.SetCc(m.fb.cc)
	m.form.SetBcc(m.fb.bcc)
	m.form.SetFrom(m.fb.from)
	m.form.SetSubject(m.fb.subject)
	m.form.SetBody(m.fb.body)
}

// load copies the compose form's draft into the bindings.
func (m ComposeModel) load() {
	d := m.form.Draft()
	*m.fb = formBindings{
		to:      d.To,
		cc:      d.Cc,
		bcc:     d.Bcc,
		from:    d.From,
		subject: d.Subject,
		body:    d.Body,
	}
}

func (m ComposeModel) attachFiles() error {
	paths := splitPaths(m.fb.files)
	if len(paths) == 0 {
		return nil
	}

	files := make([]attach.File, 0, len(paths))
	for _, p := range paths {
		f, err := attach.OpenDiskFile(p)
		if err != nil {
			return err
		}
		files = append(files, f)
	}
	if err := m.form.AddFiles(files...); err != nil {
		return err
	}
	m.fb.files = ""
	return nil
}

func (m ComposeModel) buildForm() *huh.Form {
	modal := m.form.Variant() == compose.VariantModal

	fields := []huh.Field{
		huh.NewInput().Title("To").Placeholder("recipient@example.com").Value(&m.fb.to),
	}
	if modal && m.form.FieldVisible(compose.FieldCc) {
		fields = append(fields, huh.NewInput().Title("Cc").Value(&m.fb.cc))
	}
	if modal && m.form.FieldVisible(compose.FieldBcc) {
		fields = append(fields, huh.NewInput().Title("Bcc").Value(&m.fb.bcc))
	}
	if !modal {
		fields = append(fields, huh.NewInput().Title("From (optional)").Placeholder("you@example.com").Value(&m.fb.from))
	}
	fields = append(fields,
		huh.NewInput().Title("Subject").Value(&m.fb.subject),
		huh.NewText().Title("Message").Placeholder("Write your message...").Lines(m.bodyLines()).Value(&m.fb.body),
	)
	if modal {
		fields = append(fields, huh.NewInput().
			Title("Attach files").
			Placeholder("comma-separated paths (optional)").
			Value(&m.fb.files))
	}

	return huh.NewForm(huh.NewGroup(fields...)).
		WithShowHelp(false).
		WithWidth(m.formWidth())
}

func (m ComposeModel) View() string {
	title := "New Message"
	if m.form.Variant() == compose.VariantPage {
		title = "Send Email"
	}

	if m.form.Window() == compose.WindowMinimized {
		return headerStyle.Render(title) + "  " + helpStyle.Render("ctrl+t restore")
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n\n")
	b.WriteString(m.hf.View())

	if atts := m.form.Draft().Attachments; len(atts) > 0 {
		b.WriteString("\n")
		b.WriteString(boldStyle.Render("Attachments"))
		b.WriteString("\n")
		for i, a := range atts {
			kind := ""
			if a.Preview != "" {
				kind = " (image)"
			}
			cursor := " "
			if i == m.attSel {
				cursor = ">"
			}
			fmt.Fprintf(&b, "%s %d. %s %s%s\n", cursor, i+1, a.File.Name(), dimStyle.Render(formatSize(a.File.Size())), kind)
		}
	}

	if m.sending {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Sending..."))
	}
	if m.status != nil {
		style := successStyle
		if m.status.Level == notify.LevelError {
			style = errorStyle
		}
		b.WriteString("\n")
		b.WriteString(notify.Render(*m.status, style, dimStyle))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.helpText()))

	return panelStyle.Width(m.formWidth() + 4).Render(b.String())
}

func (m ComposeModel) helpText() string {
	parts := []string{"enter next/send", "esc discard", "ctrl+t minimize", "ctrl+f maximize"}
	if m.form.Variant() == compose.VariantModal {
		parts = append(parts, "ctrl+o cc", "ctrl+b bcc", "alt+↑/↓ pick attachment", "ctrl+d drop attachment")
	}
	return strings.Join(parts, " • ")
}

func (m ComposeModel) formWidth() int {
	if m.form.Window() == compose.WindowMaximized {
		return max(40, m.width-6)
	}
	return min(max(40, m.width-6), 72)
}

func (m ComposeModel) bodyLines() int {
	if m.form.Window() == compose.WindowMaximized {
		return max(6, m.height-20)
	}
	return 6
}

func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

var _ tea.Model = ComposeModel{}
