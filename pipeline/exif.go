package pipeline

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// readOrientation extracts the EXIF orientation tag from the raw upload.
// Most PNGs and many JPEGs carry no EXIF at all, so every failure path
// resolves to 1 (normal orientation).
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil || x == nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil || tag == nil {
		return 1
	}

	orientation, err := tag.Int(0)
	if err != nil || orientation < 1 || orientation > 8 {
		return 1
	}

	return orientation
}

// applyOrientation bakes the EXIF orientation into the pixel data. The
// returned image needs no orientation tag, and re-encoding strips it.
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2: // mirror horizontal
		return imaging.FlipH(img)
	case 3: // rotate 180
		return imaging.Rotate180(img)
	case 4: // mirror vertical
		return imaging.FlipV(img)
	case 5: // mirror horizontal + rotate 270 CW
		return imaging.Transpose(img)
	case 6: // rotate 90 CW
		return imaging.Rotate270(img)
	case 7: // mirror horizontal + rotate 90 CW
		return imaging.Transverse(img)
	case 8: // rotate 270 CW
		return imaging.Rotate90(img)
	default:
		return img
	}
}
