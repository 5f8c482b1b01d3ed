package pressroom

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/eringen/pressroom/blog"
)

const (
	maxImageWidth = 1600
	jpegQuality   = 80
	uploadsSubdir = "uploads"
)

// Uploader stores an uploaded image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader, size int64) (url string, err error)
}

// DiskUploader writes processed images under <dir>/uploads and serves them
// from <baseURL>/public/uploads.
type DiskUploader struct {
	dir      string
	baseURL  string
	maxBytes int64
}

func NewDiskUploader(staticDir, baseURL string, maxBytes int64) *DiskUploader {
	return &DiskUploader{dir: staticDir, baseURL: strings.TrimRight(baseURL, "/"), maxBytes: maxBytes}
}

// Upload implements Uploader. Every failure is a *blog.UploadError.
func (u *DiskUploader) Upload(ctx context.Context, filename string, r io.Reader, size int64) (string, error) {
	if size > u.maxBytes {
		return "", &blog.UploadError{Reason: fmt.Sprintf("Image must be %dMB or smaller.", u.maxBytes>>20)}
	}
	// Read one byte past the limit so an understated size is still caught.
	raw, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return "", &blog.UploadError{Reason: "Could not read the upload.", Err: err}
	}
	if int64(len(raw)) > u.maxBytes {
		return "", &blog.UploadError{Reason: fmt.Sprintf("Image must be %dMB or smaller.", u.maxBytes>>20)}
	}
	if err := ctx.Err(); err != nil {
		return "", &blog.UploadError{Reason: "Upload was cancelled.", Err: err}
	}

	data, err := processImage(bytes.NewReader(raw))
	if err != nil {
		return "", &blog.UploadError{Reason: "File is not a supported image.", Err: err}
	}

	name := uploadName(filename)
	dir := filepath.Join(u.dir, uploadsSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &blog.UploadError{Reason: "Could not store the image.", Err: fmt.Errorf("create uploads dir: %w", err)}
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", &blog.UploadError{Reason: "Could not store the image.", Err: fmt.Errorf("write image: %w", err)}
	}
	return u.baseURL + "/public/" + uploadsSubdir + "/" + name, nil
}

// processImage decodes an image, resizes it to maxImageWidth when wider and
// encodes it as JPEG.
func processImage(src io.Reader) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, errors.New("empty image")
	}

	if w > maxImageWidth {
		newH := max(h*maxImageWidth/w, 1)
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// uploadName derives a unique file name from the original name.
func uploadName(original string) string {
	base := fileSlug(strings.TrimSuffix(filepath.Base(original), filepath.Ext(original)))
	if base == "" {
		base = "image"
	}
	if len(base) > 60 {
		base = strings.TrimRight(base[:60], "-")
	}
	return base + "-" + uuid.NewString()[:8] + ".jpg"
}

// fileSlug keeps lowercase ASCII letters and digits and collapses every
// other run into a single hyphen.
func fileSlug(s string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			hyphen = false
			continue
		}
		if !hyphen && b.Len() > 0 {
			b.WriteByte('-')
			hyphen = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
