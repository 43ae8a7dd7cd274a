package respimg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"k8s.io/klog/v2"
)

// Format is an output image format.
type Format string

const (
	AVIF Format = "avif"
	WebP Format = "webp"
	JPEG Format = "jpeg"
	PNG  Format = "png"
)

// Ext returns the file extension for a format, without the dot.
func (f Format) Ext() string {
	if f == JPEG {
		return "jpg"
	}
	return string(f)
}

// MIME returns the media type used in <source type="...">.
func (f Format) MIME() string {
	return "image/" + string(f)
}

// TranscodeOptions are encoder settings.
type TranscodeOptions struct {
	Quality int
	// Speed is the AVIF encoder speed, 0 (slowest) to 10.
	Speed    int
	Lossless bool
	// Strip removes EXIF and other metadata.
	Strip bool
	// Alpha passes the alpha channel through as-is. Without it, JPEG output is
	// flattened onto white; other formats are left to the encoder's default.
	Alpha bool
}

// Transcoder writes a resized, re-encoded copy of src to dst.
type Transcoder interface {
	Transcode(ctx context.Context, src string, dst string, f Format, width int, o TranscodeOptions) error
}

// Magick transcodes and probes images with the ImageMagick command-line tool.
type Magick struct {
	// Binary is the ImageMagick executable, "magick" if empty.
	Binary string
}

func (m *Magick) binary() string {
	if m.Binary == "" {
		return "magick"
	}
	return m.Binary
}

// magickArgs returns the ImageMagick arguments for one rendition.
func magickArgs(src string, dst string, f Format, width int, o TranscodeOptions) []string {
	args := []string{src}
	if o.Strip {
		args = append(args, "-strip")
	}
	if o.Alpha {
		args = append(args, "-alpha", "on")
	} else if f == JPEG {
		args = append(args, "-background", "white", "-alpha", "remove")
	}
	args = append(args, "-resize", fmt.Sprintf("%dx", width))
	if o.Quality > 0 {
		args = append(args, "-quality", strconv.Itoa(o.Quality))
	}

	switch f {
	case AVIF:
		args = append(args, "-define", fmt.Sprintf("heic:speed=%d", o.Speed))
	case WebP:
		args = append(args, "-define", fmt.Sprintf("webp:lossless=%t", o.Lossless))
	}

	return append(args, fmt.Sprintf("%s:%s", f, dst))
}

// Transcode runs ImageMagick for a single rendition.
func (m *Magick) Transcode(ctx context.Context, src string, dst string, f Format, width int, o TranscodeOptions) error {
	args := magickArgs(src, dst, f, width, o)
	klog.V(1).Infof("running %s %s", m.binary(), strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, m.binary(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", m.binary(), err, msg)
		}
		return fmt.Errorf("%s: %w", m.binary(), err)
	}
	return nil
}

// Probe identifies an image with "magick identify".
func (m *Magick) Probe(ctx context.Context, path string) (*SourceImage, error) {
	abs, err := statSource(path)
	if err != nil {
		return nil, err
	}

	// [0] limits identification to the first frame of animated or layered files.
	cmd := exec.CommandContext(ctx, m.binary(), "identify", "-format", "%w %h %m", abs+"[0]")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: identify %s: %v: %s", ErrUnsupportedFormat, abs, err, strings.TrimSpace(stderr.String()))
	}

	return parseIdentify(abs, stdout.String())
}

// parseIdentify parses "%w %h %m" output.
func parseIdentify(path string, out string) (*SourceImage, error) {
	fields := strings.Fields(out)
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: unexpected identify output for %s: %q", ErrUnsupportedFormat, path, out)
	}

	w, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: width %q: %v", ErrUnsupportedFormat, fields[0], err)
	}
	h, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: height %q: %v", ErrUnsupportedFormat, fields[1], err)
	}
	if w <= 0 {
		return nil, fmt.Errorf("%w: %s has no width", ErrUnsupportedFormat, path)
	}

	return newSourceImage(path, w, h, strings.ToLower(fields[2])), nil
}

// LookPath reports whether the ImageMagick binary is installed.
func (m *Magick) LookPath() error {
	if _, err := exec.LookPath(m.binary()); err != nil {
		return fmt.Errorf("ImageMagick (%s command) not found: %w", m.binary(), err)
	}
	return nil
}

// statSource returns the absolute path of a readable source file.
func statSource(path string) (string, error) {
	abs, err := absPath(path)
	if err != nil {
		return "", err
	}

	st, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceNotFound, err)
	}
	if st.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrSourceNotFound, abs)
	}
	return abs, nil
}
