package blob

import (
	"bytes"
	"fmt"
	"image"
	stddraw "image/draw"
	_ "image/jpeg"
	"image/png"
	"net/http"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/ldi/jobsite/pkg/models"
)

// ThumbSize is the edge length of photo thumbnails in pixels.
const ThumbSize = 320

// ImageExt returns the file extension for a supported photo upload.
func ImageExt(raw []byte) (string, error) {
	switch http.DetectContentType(raw) {
	case "image/png":
		return "png", nil
	case "image/jpeg":
		return "jpg", nil
	case "image/webp":
		return "webp", nil
	}
	return "", fmt.Errorf("%w: photo must be png, jpeg, or webp", models.ErrValidation)
}

func decodeImage(raw []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err == nil {
		return img, nil
	}
	if decoded, werr := webp.Decode(bytes.NewReader(raw)); werr == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("%w: unable to decode photo: %v", models.ErrValidation, err)
}

// Thumbnail center-crops the image to a square and scales it to size as PNG.
func Thumbnail(raw []byte, size int) ([]byte, error) {
	if _, err := ImageExt(raw); err != nil {
		return nil, err
	}
	img, err := decodeImage(raw)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid image dimensions", models.ErrValidation)
	}

	side := min(width, height)
	cropRect := image.Rect(0, 0, side, side)
	square := image.NewRGBA(cropRect)
	src := image.Point{X: bounds.Min.X + (width-side)/2, Y: bounds.Min.Y + (height-side)/2}
	stddraw.Draw(square, cropRect, img, src, stddraw.Src)

	thumb := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(thumb, thumb.Bounds(), square, square.Bounds(), xdraw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, thumb); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return out.Bytes(), nil
}
