package respimg

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SourceImage is a probed source image.
type SourceImage struct {
	Path   string
	Width  int
	Height int
	Format string

	// BasePath is Path without its extension. Renditions are written next to it.
	BasePath string
	// ShortName is the final element of BasePath, used for public URLs.
	ShortName string
}

// newSourceImage derives the base and short names for an absolute path.
func newSourceImage(path string, width, height int, format string) *SourceImage {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return &SourceImage{
		Path:      path,
		Width:     width,
		Height:    height,
		Format:    format,
		BasePath:  base,
		ShortName: filepath.Base(base),
	}
}

// Rendition is one encoded file.
type Rendition struct {
	Format Format
	Width  int
	// Breakpoint is 0 for the fallback rendition.
	Breakpoint int
	Path       string
	URL        string
}

// SrcsetEntry is one candidate in a srcset attribute.
type SrcsetEntry struct {
	URL   string
	Width int
}

func (e SrcsetEntry) String() string {
	return fmt.Sprintf("%s %dw", e.URL, e.Width)
}

// SizesEntry is one condition in a sizes attribute. A zero MaxWidth is unconditional.
type SizesEntry struct {
	MaxWidth int
	Width    int
}

func (e SizesEntry) String() string {
	if e.MaxWidth == 0 {
		return fmt.Sprintf("%dpx", e.Width)
	}
	return fmt.Sprintf("(max-width: %dpx) %dpx", e.MaxWidth, e.Width)
}

// Set is a built responsive image set.
type Set struct {
	Source *SourceImage
	Scale  int

	AVIF     []Rendition
	WebP     []Rendition
	Fallback Rendition
	Sizes    []SizesEntry

	AVIFSrcset string
	WebPSrcset string
	SizesAttr  string

	Alt  string
	HTML string
}

// Files returns the paths of every generated file, in generation order.
func (s *Set) Files() []string {
	files := []string{}
	for i := range s.AVIF {
		files = append(files, s.AVIF[i].Path, s.WebP[i].Path)
	}
	if s.Fallback.Path != "" {
		files = append(files, s.Fallback.Path)
	}
	return files
}
