package respimg

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/barasher/go-exiftool"
	_ "golang.org/x/image/webp"
	"k8s.io/klog/v2"
)

// Prober identifies a source image.
type Prober interface {
	Probe(ctx context.Context, path string) (*SourceImage, error)
}

func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("abs: %w", err)
	}
	return abs, nil
}

// Exiftool probes images by reading their metadata with exiftool.
type Exiftool struct {
	et *exiftool.Exiftool
}

// NewExiftool starts an exiftool process. Callers must Close it.
func NewExiftool() (*Exiftool, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}
	return &Exiftool{et: et}, nil
}

// Close stops the exiftool process.
func (e *Exiftool) Close() error {
	return e.et.Close()
}

// Probe reads the dimensions and file type of path.
func (e *Exiftool) Probe(_ context.Context, path string) (*SourceImage, error) {
	abs, err := statSource(path)
	if err != nil {
		return nil, err
	}

	fis := e.et.ExtractMetadata(abs)
	if len(fis) == 0 {
		return nil, fmt.Errorf("%w: no metadata for %s", ErrUnsupportedFormat, abs)
	}
	fi := fis[0]
	if fi.Err != nil {
		return nil, fmt.Errorf("%w: extract fail for %q: %v", ErrUnsupportedFormat, abs, fi.Err)
	}

	for k, v := range fi.Fields {
		klog.V(2).Infof("%q=%v", k, v)
	}

	w, err := fi.GetInt("ImageWidth")
	if err != nil {
		return nil, fmt.Errorf("%w: get ImageWidth: %v", ErrUnsupportedFormat, err)
	}
	if w <= 0 {
		return nil, fmt.Errorf("%w: %s has no width", ErrUnsupportedFormat, abs)
	}

	h, err := fi.GetInt("ImageHeight")
	if err != nil {
		klog.V(1).Infof("unable to get height for %s: %v", abs, err)
	}

	ft, err := fi.GetString("FileType")
	if err != nil {
		klog.V(1).Infof("unable to get file type for %s: %v", abs, err)
	}

	return newSourceImage(abs, int(w), int(h), strings.ToLower(ft)), nil
}

// Decode probes images by decoding their header with the registered image decoders.
type Decode struct{}

// Probe reads the image header of path.
func (Decode) Probe(_ context.Context, path string) (*SourceImage, error) {
	abs, err := statSource(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceNotFound, err)
	}
	defer f.Close()

	ic, format, err := image.DecodeConfig(f)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, abs)
		}
		return nil, fmt.Errorf("%w: unable to decode %s: %v", ErrUnsupportedFormat, abs, err)
	}
	if ic.Width <= 0 {
		return nil, fmt.Errorf("%w: %s has no width", ErrUnsupportedFormat, abs)
	}

	return newSourceImage(abs, ic.Width, ic.Height, format), nil
}
