package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/shineum/mailrelay/internal/inbox"
)

type inboxLoadedMsg struct {
	rows   []inbox.Summary
	unread map[inbox.Folder]int
	err    error
}

// InboxModel lists messages per folder and shows a read view.
type InboxModel struct {
	ctx     context.Context
	src     inbox.Source
	folder  int
	rows    []inbox.Summary
	unread  map[inbox.Folder]int
	cursor  int
	reading *inbox.Summary
	err     error
	width   int
}

// NewInbox returns a model browsing src, starting at the Inbox folder.
func NewInbox(ctx context.Context, src inbox.Source) InboxModel {
	return InboxModel{ctx: ctx, src: src, width: 100}
}

func (m InboxModel) Init() tea.Cmd {
	return m.load()
}

// Folder returns the folder being shown.
func (m InboxModel) Folder() inbox.Folder { return inbox.Folders[m.folder] }

func (m InboxModel) load() tea.Cmd {
	ctx, src, folder := m.ctx, m.src, m.Folder()
	return func() tea.Msg {
		rows, err := src.List(ctx, folder)
		if err != nil {
			return inboxLoadedMsg{err: err}
		}
		unread := make(map[inbox.Folder]int, len(inbox.Folders))
		for _, f := range inbox.Folders {
			n, err := src.UnreadCount(ctx, f)
			if err != nil {
				return inboxLoadedMsg{err: err}
			}
			unread[f] = n
		}
		return inboxLoadedMsg{rows: rows, unread: unread}
	}
}

func (m InboxModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case inboxLoadedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.rows = msg.rows
			m.unread = msg.unread
			if m.cursor >= len(m.rows) {
				m.cursor = max(0, len(m.rows)-1)
			}
		}
		return m, nil

	case tea.KeyMsg:
		if m.reading != nil {
			switch msg.String() {
			case "esc", "backspace":
				m.reading = nil
			case "s":
				return m.toggleStar(m.reading.ID)
			case "q", "ctrl+c":
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			m.folder = (m.folder + 1) % len(inbox.Folders)
			m.cursor = 0
			return m, m.load()
		case "shift+tab", "left", "h":
			m.folder = (m.folder + len(inbox.Folders) - 1) % len(inbox.Folders)
			m.cursor = 0
			return m, m.load()
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "s":
			if len(m.rows) > 0 {
				return m.toggleStar(m.rows[m.cursor].ID)
			}
		case "enter":
			if len(m.rows) > 0 {
				sel := m.rows[m.cursor]
				m.reading = &sel
			}
		}
	}
	return m, nil
}

func (m InboxModel) toggleStar(id string) (tea.Model, tea.Cmd) {
	starred, err := m.src.ToggleStar(m.ctx, id)
	if err != nil {
		m.err = err
		return m, nil
	}
	if m.reading != nil && m.reading.ID == id {
		m.reading.Starred = starred
	}
	return m, m.load()
}

func (m InboxModel) View() string {
	if m.reading != nil {
		return m.readView(*m.reading)
	}

	var b strings.Builder
	b.WriteString(m.tabs())
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	case len(m.rows) == 0:
		b.WriteString(dimStyle.Render(fmt.Sprintf("No messages in %s", m.Folder())))
	default:
		b.WriteString(m.table())
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab folder • ↑/↓ move • enter open • s star • q quit"))
	return b.String()
}

func (m InboxModel) tabs() string {
	tabs := make([]string, len(inbox.Folders))
	for i, f := range inbox.Folders {
		label := f.String()
		if n := m.unread[f]; n > 0 {
			label = fmt.Sprintf("%s (%d)", label, n)
		}
		if i == m.folder {
			tabs[i] = activeTabStyle.Render(label)
		} else {
			tabs[i] = inactiveTabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m InboxModel) table() string {
	rows := make([][]string, len(m.rows))
	for i, r := range m.rows {
		star := "☆"
		if r.Starred {
			star = "★"
		}
		clip := ""
		if r.HasAttachment {
			clip = "📎"
		}
		rows[i] = []string{star, r.Sender, r.Subject + " - " + r.Preview, clip, r.Timestamp}
	}

	previewWidth := max(20, m.width-60)
	cursor := m.cursor
	data := m.rows

	return table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("", "From", "Subject", "", "When").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Foreground(colorGray)
			}
			if col == 2 {
				style = style.MaxWidth(previewWidth)
			}
			if col == 0 && data[row].Starred {
				style = style.Inherit(starStyle)
			}
			if data[row].Unread {
				style = style.Bold(true)
			}
			if row == cursor {
				style = style.Foreground(colorAccent)
			}
			return style
		}).
		Render()
}

func (m InboxModel) readView(s inbox.Summary) string {
	star := "☆ not starred"
	if s.Starred {
		star = starStyle.Render("★ starred")
	}

	header := lipgloss.JoinVertical(lipgloss.Left,
		boldStyle.Render(s.Subject),
		"",
		fmt.Sprintf("%s  %s <%s>", headerStyle.Render(s.Initials()), boldStyle.Render(s.Sender), s.SenderEmail),
		dimStyle.Render(s.Timestamp)+"  "+star,
	)

	body := s.Preview
	if s.HasAttachment {
		body += "\n\n" + dimStyle.Render("📎 1 attachment")
	}

	return panelStyle.Render(header+"\n\n"+body) + "\n" +
		helpStyle.Render("esc back to inbox • s star • q quit")
}

var _ tea.Model = InboxModel{}
