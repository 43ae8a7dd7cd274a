package respimg

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Builder builds responsive image sets.
type Builder struct {
	c  *Config
	p  Prober
	t  Transcoder
	mu sync.Mutex
}

// New returns a Builder that probes with p and encodes with t.
func New(c *Config, p Prober, t Transcoder) *Builder {
	if c == nil {
		c = &Config{}
	}
	return &Builder{c: c, p: p, t: t}
}

func (b *Builder) diagf(format string, args ...any) {
	if b.c.Diag == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintf(b.c.Diag, format+"\n", args...)
}

// Build writes the renditions for the image at path, scaled by percent, and returns the
// resulting set along with its <picture> markup. Files written before a failure are left
// in place.
func (b *Builder) Build(ctx context.Context, path string, percent int) (*Set, error) {
	if percent <= 0 {
		return nil, fmt.Errorf("%w: %d%%", ErrInvalidScale, percent)
	}

	src, err := b.p.Probe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	b.diagf("%s: %dx%d %s", src.Path, src.Width, src.Height, src.Format)
	b.diagf("basename: %s", src.BasePath)

	widths, err := Widths(src.Width, percent)
	if err != nil {
		return nil, err
	}
	b.diagf("width: %d percent: %d", src.Width, percent)

	s := &Set{
		Source: src,
		Scale:  percent,
		AVIF:   make([]Rendition, len(widths)),
		WebP:   make([]Rendition, len(widths)),
		Alt:    b.c.Alt,
	}

	if err := b.breakpoints(ctx, s, widths); err != nil {
		return nil, err
	}

	last := widths[len(widths)-1]
	s.Fallback = Rendition{
		Format: JPEG,
		Width:  last,
		Path:   src.BasePath + "." + JPEG.Ext(),
		URL:    fallbackURL(b.c.urlPrefix(), src.ShortName, JPEG),
	}
	b.diagf("fallback: %s at %dpx", s.Fallback.Path, last)
	if s.Fallback.Path == src.Path {
		klog.Warningf("fallback %s replaces the source image", src.Path)
		b.diagf("warning: fallback replaces source %s", src.Path)
	}
	if err := b.transcode(ctx, src, s.Fallback); err != nil {
		return nil, err
	}

	b.assemble(s)

	s.HTML, err = Render(s)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return s, nil
}

// breakpoints fills in the AVIF and WebP renditions of s, one pair per width.
func (b *Builder) breakpoints(ctx context.Context, s *Set, widths []int) error {
	if b.c.Parallel <= 1 {
		for i, w := range widths {
			if err := b.breakpoint(ctx, s, i, w); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.c.Parallel)
	for i, w := range widths {
		g.Go(func() error {
			return b.breakpoint(gctx, s, i, w)
		})
	}
	return g.Wait()
}

// breakpoint transcodes the renditions for the i'th breakpoint and stores them at index i.
func (b *Builder) breakpoint(ctx context.Context, s *Set, i int, w int) error {
	bp := Breakpoints[i]
	b.diagf("breakpoint: %dpx -> %dpx", bp, w)

	for _, f := range []Format{AVIF, WebP} {
		r := Rendition{
			Format:     f,
			Width:      w,
			Breakpoint: bp,
			Path:       fmt.Sprintf("%s-%d.%s", s.Source.BasePath, w, f.Ext()),
			URL:        renditionURL(b.c.urlPrefix(), s.Source.ShortName, w, f),
		}
		if err := b.transcode(ctx, s.Source, r); err != nil {
			return err
		}

		if f == AVIF {
			s.AVIF[i] = r
		} else {
			s.WebP[i] = r
		}
	}
	return nil
}

func (b *Builder) transcode(ctx context.Context, src *SourceImage, r Rendition) error {
	klog.V(1).Infof("transcoding %s -> %s (%s, %dpx)", src.Path, r.Path, r.Format, r.Width)
	if err := b.t.Transcode(ctx, src.Path, r.Path, r.Format, r.Width, Presets[r.Format]); err != nil {
		klog.Errorf("transcode %s failed: %v", r.Path, err)
		return &CodecError{Format: r.Format, Breakpoint: r.Breakpoint, Width: r.Width, Err: err}
	}
	return nil
}

// assemble renders the srcset and sizes attribute values of s.
func (b *Builder) assemble(s *Set) {
	s.Sizes = sizesEntries(s.AVIF, b.c.LegacySizes)
	s.SizesAttr = joinSizes(s.Sizes)
	s.AVIFSrcset = joinSrcset(srcsetEntries(s.AVIF))
	s.WebPSrcset = joinSrcset(srcsetEntries(s.WebP))
	if b.c.LegacySizes {
		s.WebPSrcset += separator
	}
}

// WriteTo writes the <picture> markup of s to w.
func (s *Set) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, s.HTML)
	return int64(n), err
}
