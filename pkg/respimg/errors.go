package respimg

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotFound is returned when the source image does not exist or cannot be read.
	ErrSourceNotFound = errors.New("source not found")
	// ErrUnsupportedFormat is returned when the source cannot be identified as an image.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrInvalidScale is returned for a non-positive scale, or one that yields a zero width.
	ErrInvalidScale = errors.New("invalid scale")
)

// CodecError describes a failed transcode.
type CodecError struct {
	Format     Format
	Breakpoint int
	Width      int
	Err        error
}

func (e *CodecError) Error() string {
	if e.Breakpoint == 0 {
		return fmt.Sprintf("%s fallback at %dpx: %v", e.Format, e.Width, e.Err)
	}
	return fmt.Sprintf("%s for breakpoint %dpx at %dpx: %v", e.Format, e.Breakpoint, e.Width, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}
