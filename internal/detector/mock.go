package detector

import (
	"context"
	"image"
	"sync/atomic"
)

// StaticModel is a Model returning fixed objects, for tests and wiring
// checks without ONNX Runtime.
type StaticModel struct {
	ModelName string
	Objects   []Object
	Err       error

	calls atomic.Int64
}

// Predict returns the configured objects or error.
func (m *StaticModel) Predict(ctx context.Context, _ image.Image) ([]Object, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]Object, len(m.Objects))
	copy(out, m.Objects)
	return out, nil
}

// Name returns the configured model name.
func (m *StaticModel) Name() string {
	if m.ModelName != "" {
		return m.ModelName
	}
	return "static"
}

// Calls reports how many times Predict ran.
func (m *StaticModel) Calls() int { return int(m.calls.Load()) }

// Close is a no-op.
func (m *StaticModel) Close() error { return nil }
