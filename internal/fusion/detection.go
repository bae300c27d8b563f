package fusion

import (
	"fmt"

	"github.com/mealscan/mealscan/internal/geometry"
)

// SourceKind identifies the kind of collaborator a detection came from.
type SourceKind int

const (
	// SourceVendor marks detections produced by the vendor vision API.
	SourceVendor SourceKind = iota
	// SourceLocalModel marks detections produced by a local detector model.
	SourceLocalModel
	// SourceText marks entries derived from recognized text.
	SourceText
)

// Source identifies which collaborator produced a detection. Index
// distinguishes multiple local models and is zero otherwise.
type Source struct {
	Kind  SourceKind
	Index int
}

// VendorSource returns the vendor vision API source.
func VendorSource() Source { return Source{Kind: SourceVendor} }

// LocalSource returns the source for the i-th local detector model.
func LocalSource(i int) Source { return Source{Kind: SourceLocalModel, Index: i} }

// TextSource returns the text recognition source.
func TextSource() Source { return Source{Kind: SourceText} }

func (s Source) String() string {
	switch s.Kind {
	case SourceVendor:
		return "vendor"
	case SourceLocalModel:
		return fmt.Sprintf("local[%d]", s.Index)
	case SourceText:
		return "text"
	}
	return "unknown"
}

// Detection is a single proposal from one collaborator, in source pixel
// coordinates. ClassID is the local model's class index, or -1 when the
// source only provides a textual label.
type Detection struct {
	Box     geometry.Box
	Score   float64
	Label   string
	ClassID int
	Source  Source
}

// NormalizedDetection is a Detection with its box mapped into the unit
// square relative to the source image dimensions.
type NormalizedDetection struct {
	Box     geometry.Box
	Score   float64
	Label   string
	ClassID int
	Source  Source
}

// Normalize maps a detection's pixel-space box into [0,1]x[0,1] for an image
// of the given dimensions. It is pure and keeps a one-to-one correspondence
// with its input. Detections that fail normalization are reported via
// InvalidGeometryError and should be skipped, not treated as fatal.
func Normalize(d Detection, width, height int) (NormalizedDetection, error) {
	if width <= 0 || height <= 0 {
		return NormalizedDetection{}, &InvalidGeometryError{
			Width: width, Height: height,
			Reason: "non-positive image dimensions",
		}
	}
	if !d.Box.IsFinite() {
		return NormalizedDetection{}, &InvalidGeometryError{
			Width: width, Height: height,
			Reason: "non-finite box coordinate",
		}
	}
	if d.Box.MinX > d.Box.MaxX || d.Box.MinY > d.Box.MaxY {
		return NormalizedDetection{}, &InvalidGeometryError{
			Width: width, Height: height,
			Reason: fmt.Sprintf("inverted box (%.1f,%.1f)-(%.1f,%.1f)",
				d.Box.MinX, d.Box.MinY, d.Box.MaxX, d.Box.MaxY),
		}
	}

	w := float64(width)
	h := float64(height)
	return NormalizedDetection{
		Box: geometry.Box{
			MinX: clamp01(d.Box.MinX / w),
			MinY: clamp01(d.Box.MinY / h),
			MaxX: clamp01(d.Box.MaxX / w),
			MaxY: clamp01(d.Box.MaxY / h),
		},
		Score:   d.Score,
		Label:   d.Label,
		ClassID: d.ClassID,
		Source:  d.Source,
	}, nil
}

// FromParallel assembles detections from the parallel box/score/label slices
// a raw model output arrives in. Slice length mismatches reject the whole
// source via InconsistentInputError.
func FromParallel(boxes []geometry.Box, scores []float64, labels []string, src Source) ([]Detection, error) {
	if len(boxes) != len(scores) || len(boxes) != len(labels) {
		return nil, &InconsistentInputError{
			Source: src,
			Boxes:  len(boxes),
			Scores: len(scores),
			Labels: len(labels),
		}
	}
	out := make([]Detection, 0, len(boxes))
	for i := range boxes {
		out = append(out, Detection{
			Box:     boxes[i],
			Score:   scores[i],
			Label:   labels[i],
			ClassID: -1,
			Source:  src,
		})
	}
	return out, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
