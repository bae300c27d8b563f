package detector

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/mealscan/mealscan/internal/mempool"
)

// YOLO letterbox padding color.
var gray114 = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// letterbox describes how an image was fit into the square model input:
// scaled by Scale, then padded by (PadX, PadY) pixels on the left/top.
type letterbox struct {
	Scale float64
	PadX  int
	PadY  int
}

// letterboxImage scales the image to fit the square target size while
// preserving aspect ratio, centered on a gray canvas.
func letterboxImage(img image.Image, size int) (*image.NRGBA, letterbox) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	scale := float64(size) / float64(width)
	if s := float64(size) / float64(height); s < scale {
		scale = s
	}
	if scale > 1.0 {
		scale = 1.0
	}

	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)
	resized := imaging.Resize(img, newWidth, newHeight, imaging.Linear)

	lb := letterbox{
		Scale: scale,
		PadX:  (size - newWidth) / 2,
		PadY:  (size - newHeight) / 2,
	}

	canvas := imaging.New(size, size, gray114)
	return imaging.Paste(canvas, resized, image.Pt(lb.PadX, lb.PadY)), lb
}

// toNCHW converts an NRGBA image into a normalized [1,3,H,W] float tensor
// in RGB channel order. The buffer comes from the shared pool and must be
// returned via mempool.PutFloat32 once the tensor is destroyed.
func toNCHW(img *image.NRGBA) []float32 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	plane := width * height
	data := mempool.GetFloat32(3 * plane)
	for y := range height {
		for x := range width {
			offset := img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			idx := y*width + x
			data[idx] = float32(img.Pix[offset]) / 255.0
			data[plane+idx] = float32(img.Pix[offset+1]) / 255.0
			data[2*plane+idx] = float32(img.Pix[offset+2]) / 255.0
		}
	}
	return data
}
