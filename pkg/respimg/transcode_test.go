package respimg

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagickArgs(t *testing.T) {
	tests := []struct {
		name  string
		f     Format
		width int
		o     TranscodeOptions
		want  []string
	}{
		{
			name:  "avif",
			f:     AVIF,
			width: 480,
			o:     Presets[AVIF],
			want:  []string{"in.png", "-strip", "-resize", "480x", "-quality", "60", "-define", "heic:speed=2", "avif:out.avif"},
		},
		{
			name:  "webp",
			f:     WebP,
			width: 960,
			o:     Presets[WebP],
			want:  []string{"in.png", "-strip", "-resize", "960x", "-quality", "80", "-define", "webp:lossless=false", "webp:out.webp"},
		},
		{
			name:  "jpeg",
			f:     JPEG,
			width: 1920,
			o:     Presets[JPEG],
			want:  []string{"in.png", "-strip", "-background", "white", "-alpha", "remove", "-resize", "1920x", "-quality", "85", "jpeg:out.jpg"},
		},
		{
			name:  "png with alpha",
			f:     PNG,
			width: 300,
			o:     TranscodeOptions{Alpha: true},
			want:  []string{"in.png", "-alpha", "on", "-resize", "300x", "png:out.png"},
		},
		{
			name:  "webp with alpha",
			f:     WebP,
			width: 300,
			o:     TranscodeOptions{Quality: 80, Alpha: true},
			want:  []string{"in.png", "-alpha", "on", "-resize", "300x", "-quality", "80", "-define", "webp:lossless=false", "webp:out.webp"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dst := "out." + tc.f.Ext()
			assert.Equal(t, tc.want, magickArgs("in.png", dst, tc.f, tc.width, tc.o))
		})
	}
}

func TestParseIdentify(t *testing.T) {
	s, err := parseIdentify("/p/cat.heic", "4032 3024 HEIC")
	require.NoError(t, err)
	assert.Equal(t, 4032, s.Width)
	assert.Equal(t, 3024, s.Height)
	assert.Equal(t, "heic", s.Format)
	assert.Equal(t, "cat", s.ShortName)

	for _, out := range []string{"", "4032", "wide 10 PNG", "10 tall PNG", "0 10 PNG"} {
		_, err := parseIdentify("/p/cat.heic", out)
		assert.ErrorIs(t, err, ErrUnsupportedFormat, "output %q", out)
	}
}

func TestMagickMissingSource(t *testing.T) {
	m := &Magick{}
	_, err := m.Probe(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	assert.ErrorIs(t, err, ErrSourceNotFound)

	_, err = m.Probe(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestMagickMissingBinary(t *testing.T) {
	m := &Magick{Binary: "respimg-no-such-magick"}
	assert.Error(t, m.LookPath())

	err := m.Transcode(context.Background(), "in.png", filepath.Join(t.TempDir(), "out.avif"), AVIF, 480, Presets[AVIF])
	assert.ErrorContains(t, err, "respimg-no-such-magick")
}
