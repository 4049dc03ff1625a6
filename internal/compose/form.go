package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shineum/mailrelay/internal/attach"
	"github.com/shineum/mailrelay/internal/email"
	"github.com/shineum/mailrelay/internal/logger"
	"github.com/shineum/mailrelay/internal/notify"
)

var (
	ErrSendInProgress  = errors.New("a send is already in progress")
	ErrAttachmentIndex = errors.New("attachment index out of range")
	ErrNoSender        = errors.New("compose form has no sender")
)

// Notification texts shown to the user.
const (
	TitleMissingFields = "Missing fields"
	DescMissingFields  = "Please fill in all required fields"
	TitleSent          = "Email sent successfully!"
	TitleFailed        = "Failed to send email"
	DescFailedFallback = "Please try again later"
)

// Sender delivers a draft. *gateway.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, d Draft) (*email.SendResult, error)
}

// Config holds the collaborators of a Form.
type Config struct {
	Variant Variant
	Sender  Sender
	Sink    notify.Sink
	Logger  *logger.Logger
}

// Form owns a single Draft plus the visibility state around it. All
// methods are safe for concurrent use; at most one Submit runs at a time.
type Form struct {
	mu      sync.Mutex
	draft   Draft
	window  Window
	visible map[Field]bool

	variant Variant
	sender  Sender
	sink    notify.Sink
	log     *logger.Logger
	sending atomic.Bool
}

// New creates an empty, closed Form.
func New(cfg Config) *Form {
	sink := cfg.Sink
	if sink == nil {
		sink = notify.Discard
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Form{
		visible: map[Field]bool{},
		variant: cfg.Variant,
		sender:  cfg.Sender,
		sink:    sink,
		log:     log.WithComponent("compose"),
	}
}

func (f *Form) SetTo(v string)      { f.update(func(d *Draft) { d.To = v }) }
func (f *Form) SetCc(v string)      { f.update(func(d *Draft) { d.Cc = v }) }
func (f *Form) SetBcc(v string)     { f.update(func(d *Draft) { d.Bcc = v }) }
func (f *Form) SetFrom(v string)    { f.update(func(d *Draft) { d.From = v }) }
func (f *Form) SetSubject(v string) { f.update(func(d *Draft) { d.Subject = v }) }
func (f *Form) SetBody(v string)    { f.update(func(d *Draft) { d.Body = v }) }

func (f *Form) update(fn func(*Draft)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.draft)
}

// Draft returns a snapshot of the current draft.
func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.draft
	d.Attachments = append([]attach.Attachment(nil), f.draft.Attachments...)
	return d
}

// Variant reports which composer this form backs.
func (f *Form) Variant() Variant { return f.variant }

// AddFiles appends files to the draft, building image previews. Either
// every file is added or none is.
func (f *Form) AddFiles(files ...attach.File) error {
	added := make([]attach.Attachment, 0, len(files))
	for _, file := range files {
		att, err := attach.NewAttachment(file)
		if err != nil {
			return err
		}
		added = append(added, att)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Attachments = append(f.draft.Attachments, added...)
	return nil
}

// RemoveAttachment drops the attachment at index i.
func (f *Form) RemoveAttachment(i int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.draft.Attachments)
	if i < 0 || i >= n {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrAttachmentIndex, i, n)
	}
	f.draft.Attachments = append(f.draft.Attachments[:i:i], f.draft.Attachments[i+1:]...)
	return nil
}

// Window reports the current window state.
func (f *Form) Window() Window {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.window
}

func (f *Form) Open()           { f.setWindow(Window.open) }
func (f *Form) ToggleMinimize() { f.setWindow(Window.toggleMinimize) }
func (f *Form) ToggleMaximize() { f.setWindow(Window.toggleMaximize) }

func (f *Form) setWindow(next func(Window) Window) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.window = next(f.window)
}

// ToggleField shows or hides an optional recipient row. Hiding a row
// keeps its value.
func (f *Form) ToggleField(field Field) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible[field] = !f.visible[field]
}

// FieldVisible reports whether field is shown.
func (f *Form) FieldVisible(field Field) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible[field]
}

// Close discards the draft and hides the window, whatever its content.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
	f.window = WindowClosed
}

// Sending reports whether a Submit is in flight.
func (f *Form) Sending() bool { return f.sending.Load() }

// Validate checks the current draft.
func (f *Form) Validate() error {
	return f.Draft().Validate()
}

// Submit validates the draft and hands it to the sender. A blank required
// field raises a notification without contacting the relay. On success the
// form is reset; on failure the draft is kept for another attempt.
func (f *Form) Submit(ctx context.Context) (*email.SendResult, error) {
	if !f.sending.CompareAndSwap(false, true) {
		return nil, ErrSendInProgress
	}
	defer f.sending.Store(false)

	d := f.Draft()
	if err := d.Validate(); err != nil {
		f.sink.Notify(notify.Notification{
			Title:       TitleMissingFields,
			Description: DescMissingFields,
			Level:       notify.LevelError,
		})
		return nil, err
	}
	if f.sender == nil {
		return nil, ErrNoSender
	}

	res, err := f.sender.Send(ctx, f.variant.payload(d))
	if err != nil {
		f.log.Error().Err(err).Str("to", d.To).Msg("error sending email")
		f.sink.Notify(notify.Notification{
			Title:       TitleFailed,
			Description: failureDescription(err),
			Level:       notify.LevelError,
		})
		return nil, err
	}

	if res == nil {
		res = &email.SendResult{}
	}
	f.log.Info().Str("to", d.To).Str("id", res.ID).Msg("email sent")
	f.sink.Notify(notify.Notification{
		Title:       TitleSent,
		Description: fmt.Sprintf("Your email has been sent to %s", d.To),
	})

	f.mu.Lock()
	f.reset()
	if f.variant == VariantModal {
		f.window = WindowClosed
	}
	f.mu.Unlock()

	return res, nil
}

// reset clears the draft and hides the optional rows. Callers hold f.mu.
func (f *Form) reset() {
	f.draft = Draft{}
	clear(f.visible)
}

func failureDescription(err error) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return DescFailedFallback
}
