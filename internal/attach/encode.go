package attach

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/iter"

	"github.com/shineum/mailrelay/internal/email"
)

var (
	ErrFileTooLarge = errors.New("attachment too large")
	ErrTooManyFiles = errors.New("too many attachments")
)

// Limits caps what an Encoder accepts. Zero values mean unlimited.
type Limits struct {
	MaxFileBytes int64
	MaxFiles     int
}

// Result is the outcome of encoding the file at Index.
type Result struct {
	Index   int
	Name    string
	Encoded email.EncodedAttachment
	Err     error
}

// EncodeError lists every file that could not be encoded.
type EncodeError struct {
	Failed []Result
}

func (e *EncodeError) Error() string {
	parts := make([]string, len(e.Failed))
	for i, r := range e.Failed {
		parts[i] = fmt.Sprintf("%s: %v", r.Name, r.Err)
	}
	return "failed to encode attachments: " + strings.Join(parts, "; ")
}

func (e *EncodeError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, r := range e.Failed {
		errs[i] = r.Err
	}
	return errs
}

// Encoder reads and base64-encodes attachments.
type Encoder struct {
	limits Limits
}

// NewEncoder returns an Encoder enforcing limits.
func NewEncoder(limits Limits) *Encoder {
	return &Encoder{limits: limits}
}

// EncodeAll encodes every file concurrently and returns one Result per
// input, in input order. It never short-circuits.
func (e *Encoder) EncodeAll(ctx context.Context, files []File) []Result {
	type job struct {
		index int
		file  File
	}
	jobs := make([]job, len(files))
	for i, f := range files {
		jobs[i] = job{index: i, file: f}
	}

	return iter.Map(jobs, func(j *job) Result {
		res := Result{Index: j.index, Name: j.file.Name()}
		res.Encoded, res.Err = e.encodeFile(ctx, j.file)
		return res
	})
}

// Encode encodes files and aborts if any of them fails, returning an
// *EncodeError naming each failure. No files yields nil.
func (e *Encoder) Encode(ctx context.Context, files []File) ([]email.EncodedAttachment, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if e.limits.MaxFiles > 0 && len(files) > e.limits.MaxFiles {
		return nil, fmt.Errorf("%w: %d selected, limit is %d", ErrTooManyFiles, len(files), e.limits.MaxFiles)
	}

	results := e.EncodeAll(ctx, files)

	var failed []Result
	out := make([]email.EncodedAttachment, len(results))
	for i, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
			continue
		}
		out[i] = r.Encoded
	}
	if len(failed) > 0 {
		return nil, &EncodeError{Failed: failed}
	}
	return out, nil
}

func (e *Encoder) encodeFile(ctx context.Context, f File) (email.EncodedAttachment, error) {
	if err := ctx.Err(); err != nil {
		return email.EncodedAttachment{}, err
	}
	if e.limits.MaxFileBytes > 0 && f.Size() > e.limits.MaxFileBytes {
		return email.EncodedAttachment{}, fmt.Errorf("%w: %q exceeds %d bytes", ErrFileTooLarge, f.Name(), e.limits.MaxFileBytes)
	}

	raw, err := readAll(f, e.limits.MaxFileBytes)
	if err != nil {
		return email.EncodedAttachment{}, err
	}

	return email.EncodedAttachment{
		Filename: f.Name(),
		Content:  StripDataURI(dataURI(f.MediaType(), raw)),
	}, nil
}

// EncodeAll encodes files with no limits.
func EncodeAll(ctx context.Context, files []File) []Result {
	return NewEncoder(Limits{}).EncodeAll(ctx, files)
}

// Encode encodes files with no limits, aborting on any failure.
func Encode(ctx context.Context, files []File) ([]email.EncodedAttachment, error) {
	return NewEncoder(Limits{}).Encode(ctx, files)
}
