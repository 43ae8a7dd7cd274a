package respimg

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"os"
	"sync"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"github.com/chai2010/webp"
	"github.com/gen2brain/avif"
	"k8s.io/klog/v2"
)

// Native transcodes images in-process without an external tool.
// Encoders never write metadata, so TranscodeOptions.Strip always holds.
type Native struct {
	mu      sync.Mutex
	path    string
	modTime time.Time
	img     image.Image
}

// open decodes src, reusing the previous decode while src is unchanged.
func (n *Native) open(src string) (image.Image, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	st, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}

	if n.img != nil && n.path == src && st.ModTime().Equal(n.modTime) {
		return n.img, nil
	}

	img, err := imgio.Open(src)
	if err != nil {
		return nil, fmt.Errorf("imgio.Open: %w", err)
	}
	n.path = src
	n.modTime = st.ModTime()
	n.img = img
	return img, nil
}

// Transcode resizes src to width, keeping the aspect ratio, and encodes it to dst.
func (n *Native) Transcode(ctx context.Context, src string, dst string, f Format, width int, o TranscodeOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	enc, err := encoder(f, o)
	if err != nil {
		return err
	}

	img, err := n.open(src)
	if err != nil {
		return err
	}

	x, y, err := scaledSize(img.Bounds(), width)
	if err != nil {
		return err
	}

	klog.V(1).Infof("creating %dx%d %s: %s - %+v", x, y, f, dst, img.Bounds())
	var out image.Image = transform.Resize(img, x, y, transform.Lanczos)
	if f == JPEG {
		out = flatten(out)
	}

	if err := imgio.Save(dst, out, enc); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// scaledSize returns the dimensions of b resized to width.
func scaledSize(b image.Rectangle, width int) (int, int, error) {
	if b.Dx() == 0 {
		return 0, 0, fmt.Errorf("no X for %+v", b)
	}
	if b.Dy() == 0 {
		return 0, 0, fmt.Errorf("no Y for %+v", b)
	}
	if width <= 0 {
		return 0, 0, fmt.Errorf("invalid width %d", width)
	}

	scale := float64(b.Dx()) / float64(width)
	y := int(float64(b.Dy())/scale + 0.5)
	if y < 1 {
		y = 1
	}
	return width, y, nil
}

func encoder(f Format, o TranscodeOptions) (imgio.Encoder, error) {
	switch f {
	case JPEG:
		return imgio.JPEGEncoder(o.Quality), nil
	case PNG:
		return imgio.PNGEncoder(), nil
	case WebP:
		return func(w io.Writer, img image.Image) error {
			return webp.Encode(w, img, &webp.Options{
				Lossless: o.Lossless,
				Quality:  float32(o.Quality),
				Exact:    o.Alpha,
			})
		}, nil
	case AVIF:
		return func(w io.Writer, img image.Image) error {
			return avif.Encode(w, img, avif.Options{
				Quality:      o.Quality,
				QualityAlpha: o.Quality,
				Speed:        o.Speed,
			})
		}, nil
	}
	return nil, fmt.Errorf("%w: cannot encode %q", ErrUnsupportedFormat, f)
}

// flatten composites img over white, as JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Over)
	return dst
}
