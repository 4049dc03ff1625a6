package compose

// Window is the visibility state of the compose window.
type Window int

const (
	WindowClosed Window = iota
	WindowFull
	WindowMinimized
	WindowMaximized
)

func (w Window) String() string {
	switch w {
	case WindowFull:
		return "full"
	case WindowMinimized:
		return "minimized"
	case WindowMaximized:
		return "maximized"
	default:
		return "closed"
	}
}

// open brings a closed window up at full size. Any other state is kept.
func (w Window) open() Window {
	if w == WindowClosed {
		return WindowFull
	}
	return w
}

func (w Window) toggleMinimize() Window {
	switch w {
	case WindowFull, WindowMaximized:
		return WindowMinimized
	case WindowMinimized:
		return WindowFull
	default:
		return w
	}
}

func (w Window) toggleMaximize() Window {
	switch w {
	case WindowFull, WindowMinimized:
		return WindowMaximized
	case WindowMaximized:
		return WindowFull
	default:
		return w
	}
}

// Field is an optional recipient row that can be shown or hidden.
type Field int

const (
	FieldCc Field = iota
	FieldBcc
)

func (f Field) String() string {
	if f == FieldBcc {
		return "bcc"
	}
	return "cc"
}

// Variant selects which optional fields a form carries to the relay.
type Variant int

const (
	// VariantModal is the windowed composer with Cc, Bcc and attachments.
	// It closes after a successful send.
	VariantModal Variant = iota
	// VariantPage is the full-page composer with a From field. It stays
	// open after a successful send.
	VariantPage
)

func (v Variant) String() string {
	if v == VariantPage {
		return "page"
	}
	return "modal"
}

// payload strips the fields v does not carry.
func (v Variant) payload(d Draft) Draft {
	switch v {
	case VariantPage:
		d.Cc, d.Bcc, d.Attachments = "", "", nil
	default:
		d.From = ""
	}
	return d
}
