// Package inbox exposes the read-only message listing shown next to the
// composer. The only Source today is a static in-memory list.
package inbox

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrNotFound is returned when no message has the requested ID.
var ErrNotFound = errors.New("message not found")

// Folder is a sidebar entry.
type Folder int

const (
	FolderInbox Folder = iota
	FolderStarred
	FolderSnoozed
	FolderSent
	FolderDrafts
	FolderSpam
	FolderTrash
)

// Folders lists every folder in sidebar order.
var Folders = []Folder{FolderInbox, FolderStarred, FolderSnoozed, FolderSent, FolderDrafts, FolderSpam, FolderTrash}

var folderNames = map[Folder]string{
	FolderInbox:   "Inbox",
	FolderStarred: "Starred",
	FolderSnoozed: "Snoozed",
	FolderSent:    "Sent",
	FolderDrafts:  "Drafts",
	FolderSpam:    "Spam",
	FolderTrash:   "Trash",
}

func (f Folder) String() string {
	if name, ok := folderNames[f]; ok {
		return name
	}
	return "Unknown"
}

// ParseFolder resolves a folder by name, case-insensitively.
func ParseFolder(name string) (Folder, bool) {
	for f, n := range folderNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return f, true
		}
	}
	return FolderInbox, false
}

// Summary is one row of the message list.
type Summary struct {
	ID            string
	Sender        string
	SenderEmail   string
	Subject       string
	Preview       string
	Timestamp     string
	Unread        bool
	Starred       bool
	HasAttachment bool
	Folder        Folder
}

// Initials returns the first letter of each word in the sender name.
func (s Summary) Initials() string {
	var b strings.Builder
	for _, word := range strings.Fields(s.Sender) {
		b.WriteString(strings.ToUpper(string([]rune(word)[0])))
	}
	return b.String()
}

// Source supplies message summaries.
type Source interface {
	List(ctx context.Context, folder Folder) ([]Summary, error)
	Get(ctx context.Context, id string) (Summary, error)
	ToggleStar(ctx context.Context, id string) (bool, error)
	UnreadCount(ctx context.Context, folder Folder) (int, error)
}

// StaticSource serves a fixed list. Star state is kept in memory only.
type StaticSource struct {
	mu       sync.RWMutex
	messages []Summary
}

var _ Source = (*StaticSource)(nil)

// NewStaticSource returns a source over a copy of messages.
func NewStaticSource(messages []Summary) *StaticSource {
	return &StaticSource{messages: append([]Summary(nil), messages...)}
}

// NewMockSource returns the sample inbox shown before any real store exists.
func NewMockSource() *StaticSource {
	return NewStaticSource(sampleMessages)
}

// List returns the messages in folder. The Starred folder holds every
// starred message regardless of where it lives.
func (s *StaticSource) List(ctx context.Context, folder Folder) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Summary
	for _, m := range s.messages {
		if m.Folder == folder || (folder == FolderStarred && m.Starred) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *StaticSource) Get(ctx context.Context, id string) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.index(id)
	if i < 0 {
		return Summary{}, ErrNotFound
	}
	return s.messages[i], nil
}

// ToggleStar flips the starred flag and returns the new value.
func (s *StaticSource) ToggleStar(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return false, ErrNotFound
	}
	s.messages[i].Starred = !s.messages[i].Starred
	return s.messages[i].Starred, nil
}

func (s *StaticSource) UnreadCount(ctx context.Context, folder Folder) (int, error) {
	msgs, err := s.List(ctx, folder)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range msgs {
		if m.Unread {
			n++
		}
	}
	return n, nil
}

func (s *StaticSource) index(id string) int {
	for i, m := range s.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

var sampleMessages = []Summary{
	{
		ID:            "1",
		Sender:        "John Doe",
		SenderEmail:   "john@example.com",
		Subject:       "Project Update - Q4 Review",
		Preview:       "Hey team, I wanted to share the latest updates on our Q4 project progress...",
		Timestamp:     "10:30 AM",
		Unread:        true,
		HasAttachment: true,
	},
	{
		ID:          "2",
		Sender:      "Sarah Wilson",
		SenderEmail: "sarah@example.com",
		Subject:     "Meeting Notes from Yesterday",
		Preview:     "Here are the notes from our strategy meeting. Please review and add your comments...",
		Timestamp:   "9:15 AM",
		Unread:      true,
		Starred:     true,
	},
	{
		ID:            "3",
		Sender:        "Mike Johnson",
		SenderEmail:   "mike@example.com",
		Subject:       "Re: Budget Approval",
		Preview:       "Thanks for submitting the budget proposal. I've reviewed it and have a few questions...",
		Timestamp:     "Yesterday",
		HasAttachment: true,
	},
}
