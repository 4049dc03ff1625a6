package attach

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// Attachment is a file pending in a draft. Preview holds a data URI for
// images and is empty for everything else.
type Attachment struct {
	File    File
	Preview string
}

// NewAttachment wraps f, reading image files once to build their preview.
func NewAttachment(f File) (Attachment, error) {
	att := Attachment{File: f}
	if !strings.HasPrefix(f.MediaType(), "image/") {
		return att, nil
	}

	raw, err := readAll(f, 0)
	if err != nil {
		return Attachment{}, err
	}
	att.Preview = dataURI(f.MediaType(), raw)
	return att, nil
}

// Files returns the underlying files of atts in order.
func Files(atts []Attachment) []File {
	if len(atts) == 0 {
		return nil
	}
	files := make([]File, len(atts))
	for i, a := range atts {
		files[i] = a.File
	}
	return files
}

// StripDataURI returns the payload after the first comma of a data URI.
// Strings without a comma are returned unchanged.
func StripDataURI(s string) string {
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[i+1:]
	}
	return s
}

func dataURI(mediaType string, raw []byte) string {
	if mediaType == "" {
		mediaType = defaultMediaType
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(raw)
}

// readAll reads f fully. A positive limit caps the bytes read; exceeding
// it yields ErrFileTooLarge.
func readAll(f File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", f.Name(), err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", f.Name(), err)
	}
	if limit > 0 && int64(len(raw)) > limit {
		return nil, fmt.Errorf("%w: %q exceeds %d bytes", ErrFileTooLarge, f.Name(), limit)
	}
	return raw, nil
}
