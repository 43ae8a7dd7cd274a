package respimg

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaledSize(t *testing.T) {
	tests := []struct {
		b     image.Rectangle
		width int
		wantX int
		wantY int
	}{
		{b: image.Rect(0, 0, 2000, 1000), width: 480, wantX: 480, wantY: 240},
		{b: image.Rect(0, 0, 3, 2), width: 2, wantX: 2, wantY: 1},
		{b: image.Rect(0, 0, 4000, 10), width: 100, wantX: 100, wantY: 1},
		{b: image.Rect(0, 0, 100, 100), width: 300, wantX: 300, wantY: 300},
	}
	for _, tc := range tests {
		x, y, err := scaledSize(tc.b, tc.width)
		require.NoError(t, err)
		assert.Equal(t, tc.wantX, x)
		assert.Equal(t, tc.wantY, y)
	}

	_, _, err := scaledSize(image.Rect(0, 0, 0, 10), 10)
	assert.Error(t, err)
	_, _, err = scaledSize(image.Rect(0, 0, 10, 10), 0)
	assert.Error(t, err)
}

func decodeFile(t *testing.T, path string) (image.Config, string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	ic, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return ic, format
}

func TestNativeTranscode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	writePNG(t, src, 200, 100)

	n := &Native{}
	tests := []struct {
		f          Format
		wantFormat string
	}{
		{f: JPEG, wantFormat: "jpeg"},
		{f: PNG, wantFormat: "png"},
		{f: WebP, wantFormat: "webp"},
		{f: AVIF},
	}

	for _, tc := range tests {
		t.Run(string(tc.f), func(t *testing.T) {
			dst := filepath.Join(dir, "src-50."+tc.f.Ext())
			require.NoError(t, n.Transcode(context.Background(), src, dst, tc.f, 50, Presets[tc.f]))

			st, err := os.Stat(dst)
			require.NoError(t, err)
			assert.Positive(t, st.Size())

			// AVIF output is only checked for presence; no AVIF decoder is registered here.
			if tc.wantFormat == "" {
				return
			}
			ic, format := decodeFile(t, dst)
			assert.Equal(t, tc.wantFormat, format)
			assert.Equal(t, 50, ic.Width)
			assert.Equal(t, 25, ic.Height)
		})
	}
}

func TestNativeReopensChangedSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	writePNG(t, src, 200, 100)

	n := &Native{}
	dst := filepath.Join(dir, "out.png")
	require.NoError(t, n.Transcode(context.Background(), src, dst, PNG, 100, TranscodeOptions{}))
	ic, _ := decodeFile(t, dst)
	assert.Equal(t, 50, ic.Height)

	writePNG(t, src, 200, 200)
	st, err := os.Stat(src)
	require.NoError(t, err)
	// Force a distinct mtime on filesystems with coarse timestamps.
	later := st.ModTime().Add(2e9)
	require.NoError(t, os.Chtimes(src, later, later))

	require.NoError(t, n.Transcode(context.Background(), src, dst, PNG, 100, TranscodeOptions{}))
	ic, _ = decodeFile(t, dst)
	assert.Equal(t, 100, ic.Height)
}

func TestNativeErrors(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	writePNG(t, src, 20, 10)
	n := &Native{}

	err := n.Transcode(context.Background(), src, filepath.Join(dir, "out.gif"), Format("gif"), 10, TranscodeOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = n.Transcode(ctx, src, filepath.Join(dir, "out.jpg"), JPEG, 10, Presets[JPEG])
	assert.ErrorIs(t, err, context.Canceled)

	err = n.Transcode(context.Background(), filepath.Join(dir, "missing.png"), filepath.Join(dir, "out.jpg"), JPEG, 10, Presets[JPEG])
	assert.Error(t, err)
}

func TestBuildNative(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "dock.png")
	writePNG(t, src, 600, 300)

	s, err := New(&Config{}, Decode{}, &jpegOnly{n: &Native{}}).Build(context.Background(), src, 50)
	require.NoError(t, err)

	ic, format := decodeFile(t, filepath.Join(dir, "dock.jpg"))
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 300, ic.Width)
	assert.Equal(t, "/images/dock.jpg", s.Fallback.URL)
	assert.Equal(t, "/images/dock-240.avif 240w, /images/dock-300.avif 300w, /images/dock-300.avif 300w", s.AVIFSrcset)
}

// jpegOnly encodes JPEG renditions natively and writes every other format as PNG,
// so builds can be tested without the AVIF and WebP encoders.
type jpegOnly struct {
	n *Native
}

func (j *jpegOnly) Transcode(ctx context.Context, src string, dst string, f Format, width int, o TranscodeOptions) error {
	if f != JPEG {
		f = PNG
	}
	return j.n.Transcode(ctx, src, dst, f, width, o)
}
