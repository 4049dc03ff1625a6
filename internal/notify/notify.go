// Package notify delivers user-facing notifications raised by the composer.
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Level distinguishes confirmations from failures.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "info"
}

// Notification is a short title plus a one-line description.
type Notification struct {
	Title       string
	Description string
	Level       Level
}

// Sink receives notifications. Implementations must be safe for
// concurrent use.
type Sink interface {
	Notify(n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Notification)

func (f SinkFunc) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Sink = SinkFunc(func(Notification) {})

// Recorder keeps every notification it receives.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications in arrival order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Console renders notifications as styled lines on a terminal.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	title map[Level]lipgloss.Style
	desc  lipgloss.Style
}

// NewConsole returns a Console writing to w, or stderr when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stderr
	}
	return &Console{
		w: w,
		title: map[Level]lipgloss.Style{
			LevelInfo:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
			LevelError: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		},
		desc: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

func (c *Console) Notify(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, Render(n, c.title[n.Level], c.desc))
}

// Render formats n as "title  description" with the given styles.
func Render(n Notification, title, desc lipgloss.Style) string {
	if n.Description == "" {
		return title.Render(n.Title)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, title.Render(n.Title), "  ", desc.Render(n.Description))
}
