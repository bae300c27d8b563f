package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"
)

// Error wraps failures during image preprocessing.
type Error struct {
	Operation string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("preprocess error in %s: %v", e.Operation, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Constraints defines per-orientation minimum dimensions the vendor API
// expects before classification.
type Constraints struct {
	LandscapeMinWidth  int
	LandscapeMinHeight int
	PortraitMinWidth   int
	PortraitMinHeight  int
	JPEGQuality        int
}

// DefaultConstraints returns the vendor's minimum size requirements.
func DefaultConstraints() Constraints {
	return Constraints{
		LandscapeMinWidth:  1080,
		LandscapeMinHeight: 720,
		PortraitMinWidth:   720,
		PortraitMinHeight:  1080,
		JPEGQuality:        90,
	}
}

// minimums returns the applicable bounds for the image orientation.
func (c Constraints) minimums(width, height int) (int, int) {
	if width > height {
		return c.LandscapeMinWidth, c.LandscapeMinHeight
	}
	return c.PortraitMinWidth, c.PortraitMinHeight
}

// EnsureMinimumSize upscales an image to meet the orientation-specific
// minimum bounds while preserving aspect ratio. Images already large enough
// are returned unchanged. Only upscaling is performed, never downscaling.
func EnsureMinimumSize(img image.Image, c Constraints) (image.Image, error) {
	if img == nil {
		return nil, &Error{Operation: "resize", Err: errors.New("input image is nil")}
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, &Error{Operation: "resize", Err: fmt.Errorf("degenerate dimensions %dx%d", width, height)}
	}

	minWidth, minHeight := c.minimums(width, height)
	if width >= minWidth && height >= minHeight {
		return img, nil
	}

	// Scale up so both bounds are met, preserving aspect ratio.
	scale := math.Max(float64(minWidth)/float64(width), float64(minHeight)/float64(height))
	newWidth := int(math.Round(float64(width) * scale))
	newHeight := int(math.Round(float64(height) * scale))

	slog.Debug("upscaling image for vendor constraints",
		"from_width", width, "from_height", height,
		"to_width", newWidth, "to_height", newHeight)

	return imaging.Resize(img, newWidth, newHeight, imaging.Lanczos), nil
}

// ResizeBytes decodes image bytes, enforces the minimum bounds, and
// re-encodes as JPEG. Bytes that already satisfy the bounds are returned
// unchanged.
func ResizeBytes(data []byte, c Constraints) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Operation: "decode", Err: err}
	}

	resized, err := EnsureMinimumSize(img, c)
	if err != nil {
		return nil, err
	}
	if resized == img {
		return data, nil
	}

	quality := c.JPEGQuality
	if quality <= 0 {
		quality = 90
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: quality}); err != nil {
		return nil, &Error{Operation: "encode", Err: err}
	}
	return buf.Bytes(), nil
}
