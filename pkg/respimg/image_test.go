package respimg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSourceImage(t *testing.T) {
	s := newSourceImage("/site/content/posts/fjord.sunset.jpg", 4000, 3000, "jpeg")
	assert.Equal(t, "/site/content/posts/fjord.sunset", s.BasePath)
	assert.Equal(t, "fjord.sunset", s.ShortName)
	assert.Equal(t, 4000, s.Width)
}

func TestEntryString(t *testing.T) {
	assert.Equal(t, "/images/x-480.avif 480w", SrcsetEntry{URL: "/images/x-480.avif", Width: 480}.String())
	assert.Equal(t, "(max-width: 960px) 400px", SizesEntry{MaxWidth: 960, Width: 400}.String())
	assert.Equal(t, "400px", SizesEntry{Width: 400}.String())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "jpg", JPEG.Ext())
	assert.Equal(t, "avif", AVIF.Ext())
	assert.Equal(t, "image/webp", WebP.MIME())
	assert.Equal(t, "image/jpeg", JPEG.MIME())
}

func TestCodecError(t *testing.T) {
	inner := errors.New("exit status 1")

	e := &CodecError{Format: AVIF, Breakpoint: 480, Width: 240, Err: inner}
	assert.Equal(t, "avif for breakpoint 480px at 240px: exit status 1", e.Error())
	assert.ErrorIs(t, e, inner)

	f := &CodecError{Format: JPEG, Width: 400, Err: inner}
	assert.Equal(t, "jpeg fallback at 400px: exit status 1", f.Error())
}
