package detector

import (
	"fmt"
	"image"
	"sort"

	"github.com/mealscan/mealscan/internal/geometry"
)

// decodeOutput converts a YOLO-style [1, 4+C, N] output tensor into objects
// in source pixel coordinates. Each of the N candidates carries a center box
// (cx, cy, w, h) followed by C per-class scores; the candidate's class is
// the highest-scoring one. Candidates below confThreshold are dropped, the
// rest go through class-aware NMS.
func decodeOutput(output []float32, shape []int64, labels []string, lb letterbox,
	imgWidth, imgHeight int, confThreshold, nmsThreshold float64,
) ([]Object, error) {
	if len(shape) != 3 || shape[0] != 1 {
		return nil, fmt.Errorf("detector: unexpected output shape %v", shape)
	}
	attrs := int(shape[1])
	candidates := int(shape[2])
	numClasses := attrs - 4
	if numClasses <= 0 || numClasses != len(labels) {
		return nil, fmt.Errorf("detector: output has %d classes, labels file has %d", numClasses, len(labels))
	}
	if len(output) < attrs*candidates {
		return nil, fmt.Errorf("detector: output tensor too short: %d < %d", len(output), attrs*candidates)
	}

	bounds := image.Rect(0, 0, imgWidth, imgHeight)
	var objects []Object
	for i := range candidates {
		classID := 0
		score := output[4*candidates+i]
		for c := 1; c < numClasses; c++ {
			if s := output[(4+c)*candidates+i]; s > score {
				score = s
				classID = c
			}
		}
		if float64(score) < confThreshold {
			continue
		}

		cx := float64(output[i])
		cy := float64(output[candidates+i])
		w := float64(output[2*candidates+i])
		h := float64(output[3*candidates+i])

		// Undo the letterbox transform back into source pixel space.
		x1 := (cx - w/2 - float64(lb.PadX)) / lb.Scale
		y1 := (cy - h/2 - float64(lb.PadY)) / lb.Scale
		x2 := (cx + w/2 - float64(lb.PadX)) / lb.Scale
		y2 := (cy + h/2 - float64(lb.PadY)) / lb.Scale

		rect := geometry.NewBox(x1, y1, x2, y2).ToRect(bounds)
		if rect.Dx() == 0 || rect.Dy() == 0 {
			continue
		}
		objects = append(objects, Object{
			Box:       geometry.NewBox(float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Max.X), float64(rect.Max.Y)),
			Score:     float64(score),
			ClassID:   classID,
			ClassName: labels[classID],
		})
	}

	return suppressOverlaps(objects, nmsThreshold), nil
}

// suppressOverlaps performs greedy class-aware NMS, keeping the highest
// scoring object per overlapping group.
func suppressOverlaps(objects []Object, iouThreshold float64) []Object {
	if len(objects) <= 1 {
		return objects
	}

	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].Score > objects[j].Score
	})

	suppressed := make([]bool, len(objects))
	kept := make([]Object, 0, len(objects))
	for i := range objects {
		if suppressed[i] {
			continue
		}
		kept = append(kept, objects[i])
		for j := i + 1; j < len(objects); j++ {
			if suppressed[j] || objects[j].ClassID != objects[i].ClassID {
				continue
			}
			if geometry.IoU(objects[i].Box, objects[j].Box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}
