package fusion

import "fmt"

// InvalidGeometryError reports a detection whose box or image dimensions
// cannot be normalized. The offending detection is dropped; the remaining
// detections continue through the pipeline.
type InvalidGeometryError struct {
	Width  int
	Height int
	Reason string
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("invalid geometry (%dx%d image): %s", e.Width, e.Height, e.Reason)
}

// InconsistentInputError reports a source whose parallel box/score/label
// slices disagree in length. That source's contribution is rejected; fusion
// continues with the remaining sources.
type InconsistentInputError struct {
	Source Source
	Boxes  int
	Scores int
	Labels int
}

func (e *InconsistentInputError) Error() string {
	return fmt.Sprintf("inconsistent input from %s: %d boxes, %d scores, %d labels",
		e.Source, e.Boxes, e.Scores, e.Labels)
}
