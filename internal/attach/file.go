// Package attach turns files picked in the composer into the base64
// attachments carried by a send request.
package attach

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const defaultMediaType = "application/octet-stream"

// File is a selected file. Open may be called more than once.
type File interface {
	Name() string
	Size() int64
	MediaType() string
	Open() (io.ReadCloser, error)
}

// DiskFile is a File backed by a path on the local filesystem.
type DiskFile struct {
	path      string
	size      int64
	mediaType string
}

// OpenDiskFile stats path and resolves its media type. Directories are rejected.
func OpenDiskFile(path string) (*DiskFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat attachment: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("attachment %q is a directory", path)
	}

	mediaType := byExtension(path)
	if mediaType == "" {
		mediaType, err = sniffFile(path)
		if err != nil {
			return nil, err
		}
	}

	return &DiskFile{path: path, size: info.Size(), mediaType: mediaType}, nil
}

func (f *DiskFile) Name() string      { return filepath.Base(f.path) }
func (f *DiskFile) Size() int64       { return f.size }
func (f *DiskFile) MediaType() string { return f.mediaType }
func (f *DiskFile) Path() string      { return f.path }

func (f *DiskFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// MemFile is a File held in memory.
type MemFile struct {
	name      string
	data      []byte
	mediaType string
}

// NewMemFile wraps data under name. The media type comes from the
// extension, falling back to content sniffing.
func NewMemFile(name string, data []byte) *MemFile {
	mediaType := byExtension(name)
	if mediaType == "" {
		mediaType = sniff(data)
	}
	return &MemFile{name: name, data: data, mediaType: mediaType}
}

func (f *MemFile) Name() string      { return f.name }
func (f *MemFile) Size() int64       { return int64(len(f.data)) }
func (f *MemFile) MediaType() string { return f.mediaType }

func (f *MemFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// byExtension returns the bare media type for name's extension, without
// parameters, or "" when the extension is unknown.
func byExtension(name string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if t == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}

func sniffFile(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open attachment: %w", err)
	}
	defer fh.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(fh, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("failed to read attachment: %w", err)
	}
	return sniff(head[:n]), nil
}

func sniff(data []byte) string {
	if len(data) == 0 {
		return defaultMediaType
	}
	t := http.DetectContentType(data)
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return t
}
