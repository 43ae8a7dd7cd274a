package respimg

import (
	"fmt"
	"net/url"
	"strings"
)

const separator = ", "

// RenditionWidth returns the width rendered for a breakpoint: the breakpoint capped at
// the intrinsic width, then scaled by percent with truncating division.
func RenditionWidth(breakpoint int, intrinsic int, percent int) int {
	return min(breakpoint, intrinsic) * percent / 100
}

// Widths returns the rendition width for every breakpoint.
func Widths(intrinsic int, percent int) ([]int, error) {
	if percent <= 0 {
		return nil, fmt.Errorf("%w: %d%%", ErrInvalidScale, percent)
	}
	if intrinsic <= 0 {
		return nil, fmt.Errorf("%w: intrinsic width %d", ErrUnsupportedFormat, intrinsic)
	}

	ws := make([]int, 0, len(Breakpoints))
	for _, bp := range Breakpoints {
		w := RenditionWidth(bp, intrinsic, percent)
		if w <= 0 {
			return nil, fmt.Errorf("%w: %d%% of %dpx rounds to zero for breakpoint %dpx", ErrInvalidScale, percent, min(bp, intrinsic), bp)
		}
		ws = append(ws, w)
	}
	return ws, nil
}

// renditionURL returns the public URL of a breakpoint rendition. The name is escaped so a
// srcset candidate never contains whitespace before its width descriptor.
func renditionURL(prefix string, shortName string, width int, f Format) string {
	return fmt.Sprintf("%s%s-%d.%s", prefix, url.PathEscape(shortName), width, f.Ext())
}

// fallbackURL returns the public URL of the unsuffixed fallback image.
func fallbackURL(prefix string, shortName string, f Format) string {
	return fmt.Sprintf("%s%s.%s", prefix, url.PathEscape(shortName), f.Ext())
}

func srcsetEntries(rs []Rendition) []SrcsetEntry {
	es := make([]SrcsetEntry, 0, len(rs))
	for _, r := range rs {
		es = append(es, SrcsetEntry{URL: r.URL, Width: r.Width})
	}
	return es
}

// joinSrcset renders a srcset attribute value.
func joinSrcset(es []SrcsetEntry) string {
	parts := make([]string, 0, len(es))
	for _, e := range es {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, separator)
}

// sizesEntries returns one media-query entry per rendition followed by an unconditional
// entry for the largest width. With legacy set, the last media-query entry is omitted.
func sizesEntries(rs []Rendition, legacy bool) []SizesEntry {
	if len(rs) == 0 {
		return nil
	}

	es := make([]SizesEntry, 0, len(rs)+1)
	for _, r := range rs {
		es = append(es, SizesEntry{MaxWidth: r.Breakpoint, Width: r.Width})
	}
	if legacy {
		es = es[:len(es)-1]
	}
	return append(es, SizesEntry{Width: rs[len(rs)-1].Width})
}

// joinSizes renders a sizes attribute value.
func joinSizes(es []SizesEntry) string {
	parts := make([]string, 0, len(es))
	for _, e := range es {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, separator)
}
