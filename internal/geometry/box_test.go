package geometry

import (
	"image"
	"math"
	"testing"
)

func TestNewBoxOrdersCoordinates(t *testing.T) {
	b := NewBox(10, 20, 2, 4)
	if b.MinX != 2 || b.MinY != 4 || b.MaxX != 10 || b.MaxY != 20 {
		t.Fatalf("unexpected box after ordering: %+v", b)
	}
	if b.Width() != 8 || b.Height() != 16 {
		t.Fatalf("unexpected dimensions: w=%v h=%v", b.Width(), b.Height())
	}
}

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Box
		want float64
	}{
		{"identical", NewBox(0, 0, 10, 10), NewBox(0, 0, 10, 10), 1.0},
		{"disjoint", NewBox(0, 0, 10, 10), NewBox(20, 20, 30, 30), 0.0},
		{"touching edge", NewBox(0, 0, 10, 10), NewBox(10, 0, 20, 10), 0.0},
		{"half overlap", NewBox(0, 0, 10, 10), NewBox(5, 0, 15, 10), 1.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IoU(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("IoU = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIoUSymmetric(t *testing.T) {
	a := NewBox(0, 0, 8, 6)
	b := NewBox(2, 1, 12, 9)
	if IoU(a, b) != IoU(b, a) {
		t.Fatalf("IoU is not symmetric")
	}
}

func TestIsFinite(t *testing.T) {
	if !NewBox(0, 0, 1, 1).IsFinite() {
		t.Fatalf("finite box reported as non-finite")
	}
	bad := Box{MinX: math.NaN(), MinY: 0, MaxX: 1, MaxY: 1}
	if bad.IsFinite() {
		t.Fatalf("NaN box reported as finite")
	}
	inf := Box{MinX: 0, MinY: 0, MaxX: math.Inf(1), MaxY: 1}
	if inf.IsFinite() {
		t.Fatalf("Inf box reported as finite")
	}
}

func TestToRectClamps(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)
	r := NewBox(-5, -5, 150, 50).ToRect(bounds)
	if r != image.Rect(0, 0, 100, 50) {
		t.Fatalf("unexpected clamped rect: %v", r)
	}
}
