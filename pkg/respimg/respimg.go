// Package respimg builds responsive image sets: AVIF and WebP renditions at fixed
// breakpoint widths, a JPEG fallback, and the <picture> markup that references them.
package respimg

import "io"

// Breakpoints are the viewport widths that renditions are generated for, in ascending order.
var Breakpoints = []int{480, 960, 1920}

// DefaultScale is the scale percentage used when none is given.
const DefaultScale = 100

// DefaultURLPrefix is where renditions are served from, regardless of where they are written.
const DefaultURLPrefix = "/images/"

// Presets are the encoder settings for each rendition format.
var Presets = map[Format]TranscodeOptions{
	AVIF: {Quality: 60, Speed: 2, Strip: true},
	WebP: {Quality: 80, Strip: true},
	JPEG: {Quality: 85, Strip: true},
}

// Config holds configuration for a Builder.
type Config struct {
	// URLPrefix is prepended to rendition file names in the emitted markup.
	URLPrefix string
	// Parallel is the number of breakpoints transcoded at once. 0 or 1 is sequential.
	Parallel int
	// LegacySizes reproduces the trimming of older generated pages: the largest
	// breakpoint loses its media query and the WebP srcset keeps its trailing comma.
	LegacySizes bool
	// Alt is the alt text of the fallback <img>.
	Alt string
	// Diag receives human-readable progress lines. nil discards them.
	Diag io.Writer
}

func (c *Config) urlPrefix() string {
	if c.URLPrefix == "" {
		return DefaultURLPrefix
	}
	return c.URLPrefix
}
