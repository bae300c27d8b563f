package detector

import (
	"context"
	"image"

	"github.com/mealscan/mealscan/internal/geometry"
)

// Object is one detected food item in source pixel coordinates.
type Object struct {
	Box       geometry.Box
	Score     float64
	ClassID   int
	ClassName string
}

// Model is a local object detection model. Implementations must be safe for
// concurrent use; the ONNX-backed detector serializes inference internally
// because the session holds exclusive accelerator resources.
type Model interface {
	Predict(ctx context.Context, img image.Image) ([]Object, error)
	Name() string
	Close() error
}
