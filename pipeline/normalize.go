// Package pipeline normalizes user-submitted cover photos into canonical
// 2:3 JPEG thumbnails. Normalization is a pure computation: callers decide
// where the resulting bytes are persisted.
package pipeline

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	// MaxUploadBytes caps the raw upload size at 5 MiB.
	MaxUploadBytes = 5 << 20

	// Target envelope. MaxWidth:MaxHeight is itself exactly 2:3 so a
	// downscale to the envelope preserves the cropped aspect ratio.
	MaxWidth  = 400
	MaxHeight = 600

	JPEGQuality = 85

	aspectW = 2
	aspectH = 3
)

// ErrInvalidImage covers every client-caused rejection: oversized upload,
// disallowed content type, or bytes that do not decode as an image.
var ErrInvalidImage = errors.New("invalid image")

var allowedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// Thumbnail is a normalized cover photo: always JPEG, always exactly 2:3,
// never exceeding the envelope. Name is content-addressed so it is safe to
// use as a storage key regardless of the client's filename.
type Thumbnail struct {
	Data   []byte
	Name   string
	Width  int
	Height int
}

// Normalize converts an arbitrary uploaded image into a canonical thumbnail:
// decode, bake in EXIF orientation, flatten transparency onto white, center
// crop to 2:3, downscale into the envelope, encode as JPEG. It either
// returns a complete thumbnail or an error wrapping ErrInvalidImage; nothing
// is written anywhere.
func Normalize(data []byte, contentType string) (*Thumbnail, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidImage)
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidImage, MaxUploadBytes)
	}

	declared := normalizeContentType(contentType)
	if _, ok := allowedTypes[declared]; !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrInvalidImage, contentType)
	}

	// Sniff magic bytes as well; the declared type is client-controlled.
	if sniffed := http.DetectContentType(data); !strings.HasPrefix(sniffed, "image/") {
		return nil, fmt.Errorf("%w: content does not look like an image", ErrInvalidImage)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode failed: %v", ErrInvalidImage, err)
	}

	img = applyOrientation(img, readOrientation(data))
	img = flatten(img)

	img, err = cropToAspect(img)
	if err != nil {
		return nil, err
	}

	// Downscale only. The crop guarantees exact 2:3, and the envelope is
	// 2:3 too, so a single resize keeps the ratio.
	if img.Bounds().Dx() > MaxWidth {
		img = imaging.Resize(img, MaxWidth, MaxHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("%w: jpeg encode failed: %v", ErrInvalidImage, err)
	}

	encoded := buf.Bytes()
	bounds := img.Bounds()

	return &Thumbnail{
		Data:   encoded,
		Name:   fmt.Sprintf("%x.jpg", sha256.Sum256(encoded)),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

func normalizeContentType(ct string) string {
	ct = strings.TrimSpace(strings.ToLower(ct))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// flatten composites transparent or palette images onto a white background
// so the JPEG output never encodes leftover transparency as black.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}

	bounds := img.Bounds()
	bg := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// cropToAspect computes the largest centered 2:3 window that fits the image:
// wider inputs lose width symmetrically, taller ones lose height. Inputs
// already at 2:3 pass through untouched.
func cropToAspect(img image.Image) (image.Image, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	unit := w / aspectW
	if h/aspectH < unit {
		unit = h / aspectH
	}
	if unit < 1 {
		return nil, fmt.Errorf("%w: image too small to crop to %d:%d", ErrInvalidImage, aspectW, aspectH)
	}

	cropW, cropH := unit*aspectW, unit*aspectH
	if cropW == w && cropH == h {
		return img, nil
	}

	return imaging.CropCenter(img, cropW, cropH), nil
}
