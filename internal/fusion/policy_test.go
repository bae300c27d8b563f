package fusion

import (
	"testing"

	"github.com/mealscan/mealscan/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideTextWinsOutright(t *testing.T) {
	clusters := []Cluster{{
		Box: geometry.NewBox(0, 0, 0.5, 0.5), Score: 0.99, Label: "Bulgogi",
		TopSource: LocalSource(0),
	}}
	regions := []VendorRegion{{ID: "region_0", FoodName: "Bibimbap", Confidence: 0.9}}

	d := Decide([]string{"Kimchi", "Rice", "Kimchi"}, true, clusters, regions, nil, DefaultThresholds())
	assert.Equal(t, TextOnly, d.Mode)
	assert.Equal(t, []string{"Kimchi", "Rice"}, d.FoodNames)
	assert.Empty(t, d.Regions)
}

func TestDecideAllSourcesFailedDegradesCleanly(t *testing.T) {
	d := Decide(nil, false, nil, nil, nil, DefaultThresholds())
	assert.Equal(t, VisionFused, d.Mode)
	require.NotNil(t, d.FoodNames)
	assert.Empty(t, d.FoodNames)
	require.NotNil(t, d.Regions)
	assert.Empty(t, d.Regions)
}

func TestDecideTextErrorFallsThroughToVision(t *testing.T) {
	regions := []VendorRegion{{
		ID: "region_0", FoodName: "Bulgogi", Confidence: 0.6,
		Payload: map[string]any{"food_name": "Bulgogi", "confidence": 0.6},
	}}
	clusters := []Cluster{{
		Box: geometry.NewBox(0.6, 0.6, 0.9, 0.9), Score: 0.55, Label: "Rice",
		TopSource: LocalSource(0),
	}}

	d := Decide(nil, false, clusters, regions, nil, DefaultThresholds())
	assert.Equal(t, VisionFused, d.Mode)
	assert.Equal(t, []string{"Bulgogi", "Rice"}, d.FoodNames)
	assert.Contains(t, d.Regions, "region_0")
}

func TestDecideVendorThreshold(t *testing.T) {
	regions := []VendorRegion{
		{ID: "region_0", FoodName: "Bulgogi", Confidence: 0.29},
		{ID: "region_1", FoodName: "Japchae", Confidence: 0.31},
	}
	d := Decide(nil, false, nil, regions, nil, DefaultThresholds())
	assert.Equal(t, []string{"Japchae"}, d.FoodNames)
	assert.NotContains(t, d.Regions, "region_0")
}

func TestDecideDetectorThreshold(t *testing.T) {
	clusters := []Cluster{
		{Score: 0.49, Label: "Rice", TopSource: LocalSource(0)},
		{Score: 0.51, Label: "Soup", TopSource: LocalSource(1)},
	}
	d := Decide(nil, false, clusters, nil, nil, DefaultThresholds())
	assert.Equal(t, []string{"Soup"}, d.FoodNames)
}

func TestDecideFusedVendorClusterUsesVendorFloor(t *testing.T) {
	clusters := []Cluster{
		// A vendor-topped cluster below the detector floor but above the
		// post-fusion vendor floor still passes.
		{Score: 0.45, Label: "Bibimbap", TopSource: VendorSource()},
	}
	d := Decide(nil, false, clusters, nil, nil, DefaultThresholds())
	assert.Equal(t, []string{"Bibimbap"}, d.FoodNames)
}

func TestDecideDeduplicatesAcrossSources(t *testing.T) {
	regions := []VendorRegion{{ID: "region_0", FoodName: "Rice", Confidence: 0.8}}
	clusters := []Cluster{{Score: 0.9, Label: "Rice", TopSource: LocalSource(0)}}
	d := Decide(nil, false, clusters, regions, nil, DefaultThresholds())
	assert.Equal(t, []string{"Rice"}, d.FoodNames)
}

func TestDecideResolvesLabelFromRegistry(t *testing.T) {
	reg := NewRegistry(150)
	reg.ResolveClass(3, "Tteokbokki")
	clusters := []Cluster{{Score: 0.8, ClassID: 3, TopSource: LocalSource(0)}}
	d := Decide(nil, false, clusters, nil, reg, DefaultThresholds())
	assert.Equal(t, []string{"Tteokbokki"}, d.FoodNames)
}
