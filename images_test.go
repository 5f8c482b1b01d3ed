package pressroom

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/pressroom/blog"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDiskUploaderStoresResizedJPEG(t *testing.T) {
	dir := t.TempDir()
	u := NewDiskUploader(dir, "https://example.com/", 4<<20)
	data := pngBytes(t, 2000, 1000)

	got, err := u.Upload(context.Background(), "My Photo.PNG", bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(got, "https://example.com/public/uploads/my-photo-"), got)
	require.True(t, strings.HasSuffix(got, ".jpg"))

	stored, err := os.ReadFile(filepath.Join(dir, "uploads", filepath.Base(got)))
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, maxImageWidth, cfg.Width)
	assert.Equal(t, 800, cfg.Height)
}

func TestDiskUploaderKeepsSmallImages(t *testing.T) {
	dir := t.TempDir()
	u := NewDiskUploader(dir, "https://example.com", 4<<20)
	data := pngBytes(t, 320, 200)

	got, err := u.Upload(context.Background(), "small.png", bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	stored, err := os.ReadFile(filepath.Join(dir, "uploads", filepath.Base(got)))
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(stored))
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Width)
}

func TestDiskUploaderRejects(t *testing.T) {
	u := NewDiskUploader(t.TempDir(), "https://example.com", 1<<20)
	ctx := context.Background()

	tests := []struct {
		name string
		data []byte
		size int64
	}{
		{"declared too large", []byte("x"), 2 << 20},
		{"actually too large", bytes.Repeat([]byte("x"), 1<<20+10), 10},
		{"not an image", []byte("hello, world"), 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := u.Upload(ctx, "f.png", bytes.NewReader(tt.data), tt.size)
			require.ErrorIs(t, err, blog.ErrUpload)
			var ue *blog.UploadError
			require.ErrorAs(t, err, &ue)
			assert.NotEmpty(t, ue.Reason)
		})
	}
}

func TestUploadName(t *testing.T) {
	a, b := uploadName("Summer Trip.jpeg"), uploadName("Summer Trip.jpeg")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "summer-trip-"))
	assert.True(t, strings.HasPrefix(uploadName("../../etc/passwd"), "passwd-"))
	assert.True(t, strings.HasPrefix(uploadName("???.png"), "image-"))
}

func TestFileSlug(t *testing.T) {
	assert.Equal(t, "summer-trip-2026", fileSlug("  Summer Trip (2026) "))
	assert.Equal(t, "", fileSlug("???"))
	assert.Equal(t, "caf", fileSlug("Café"))
}
