package fusion

import (
	"math"
	"testing"

	"github.com/mealscan/mealscan/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMapsIntoUnitSquare(t *testing.T) {
	d := Detection{
		Box:     geometry.NewBox(100, 50, 300, 250),
		Score:   0.8,
		Label:   "Bibimbap",
		ClassID: -1,
		Source:  VendorSource(),
	}
	nd, err := Normalize(d, 400, 500)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, nd.Box.MinX, 1e-9)
	assert.InDelta(t, 0.1, nd.Box.MinY, 1e-9)
	assert.InDelta(t, 0.75, nd.Box.MaxX, 1e-9)
	assert.InDelta(t, 0.5, nd.Box.MaxY, 1e-9)
	assert.Equal(t, d.Label, nd.Label)
	assert.Equal(t, d.Score, nd.Score)
	assert.Equal(t, d.Source, nd.Source)
}

func TestNormalizeClampsOutOfFrameBoxes(t *testing.T) {
	d := Detection{Box: geometry.NewBox(-20, -10, 500, 600), Score: 0.5}
	nd, err := Normalize(d, 400, 500)
	require.NoError(t, err)
	for _, v := range []float64{nd.Box.MinX, nd.Box.MinY, nd.Box.MaxX, nd.Box.MaxY} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestNormalizeRejectsBadGeometry(t *testing.T) {
	tests := []struct {
		name          string
		det           Detection
		width, height int
	}{
		{"zero width", Detection{Box: geometry.NewBox(0, 0, 1, 1)}, 0, 100},
		{"negative height", Detection{Box: geometry.NewBox(0, 0, 1, 1)}, 100, -3},
		{"NaN coordinate", Detection{Box: geometry.Box{MinX: math.NaN(), MaxX: 1, MaxY: 1}}, 100, 100},
		{"infinite coordinate", Detection{Box: geometry.Box{MinX: 0, MaxX: math.Inf(1), MaxY: 1}}, 100, 100},
		{"inverted box", Detection{Box: geometry.Box{MinX: 10, MinY: 0, MaxX: 5, MaxY: 5}}, 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.det, tt.width, tt.height)
			require.Error(t, err)
			var geomErr *InvalidGeometryError
			require.ErrorAs(t, err, &geomErr)
		})
	}
}

func TestFromParallelLengthMismatch(t *testing.T) {
	boxes := []geometry.Box{geometry.NewBox(0, 0, 1, 1)}
	scores := []float64{0.9, 0.8}
	labels := []string{"Rice"}
	_, err := FromParallel(boxes, scores, labels, LocalSource(0))
	require.Error(t, err)
	var inconsistent *InconsistentInputError
	require.ErrorAs(t, err, &inconsistent)
	assert.Equal(t, LocalSource(0), inconsistent.Source)
}

func TestFromParallel(t *testing.T) {
	boxes := []geometry.Box{geometry.NewBox(0, 0, 1, 1), geometry.NewBox(2, 2, 3, 3)}
	scores := []float64{0.9, 0.8}
	labels := []string{"Rice", "Soup"}
	dets, err := FromParallel(boxes, scores, labels, LocalSource(1))
	require.NoError(t, err)
	require.Len(t, dets, 2)
	assert.Equal(t, "Soup", dets[1].Label)
	assert.Equal(t, -1, dets[0].ClassID)
	assert.Equal(t, LocalSource(1), dets[0].Source)
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "vendor", VendorSource().String())
	assert.Equal(t, "local[2]", LocalSource(2).String())
	assert.Equal(t, "text", TextSource().String())
}
