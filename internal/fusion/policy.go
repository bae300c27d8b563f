package fusion

// Thresholds carries the per-source confidence floors applied by the
// decision policy. The observed services disagreed on these values, so they
// are configuration rather than constants.
type Thresholds struct {
	VendorConfidence float64 // vendor region top-prediction floor
	FusedVendor      float64 // fused cluster floor when the top member is the vendor
	DetectorScore    float64 // fused cluster floor for local detector clusters
}

// DefaultThresholds returns the default decision thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		VendorConfidence: 0.3,
		FusedVendor:      0.4,
		DetectorScore:    0.5,
	}
}

// VendorRegion is one region reported by the vendor vision API, with its top
// prediction and the full payload passed through to the result.
type VendorRegion struct {
	ID         string
	FoodName   string
	Confidence float64
	Payload    map[string]any
}

// Decision is the policy's output before assembly into the wire record.
type Decision struct {
	Mode      InferMode
	FoodNames []string
	Regions   map[string]map[string]any
}

// Decide applies source precedence and confidence thresholds to produce the
// final food list.
//
// Recognized text wins outright: when the text collaborator reports usable
// items, the decision is TextOnly and no vision input is consulted. Printed
// receipt or menu text is treated as ground truth over visual inference.
//
// Otherwise the decision is VisionFused: vendor regions pass on their top
// prediction confidence and contribute their payload keyed by region id;
// fused clusters pass on their aggregated score against the floor for their
// top member's source. Names deduplicate by exact string, first seen wins.
// When every source failed or returned nothing, the result is a well-formed
// VisionFused decision with no names, never an error.
func Decide(textItems []string, textOK bool, clusters []Cluster, regions []VendorRegion, reg *Registry, th Thresholds) Decision {
	if textOK && len(textItems) > 0 {
		return Decision{
			Mode:      TextOnly,
			FoodNames: dedupe(textItems),
			Regions:   map[string]map[string]any{},
		}
	}

	d := Decision{
		Mode:      VisionFused,
		FoodNames: []string{},
		Regions:   map[string]map[string]any{},
	}
	seen := make(map[string]bool)

	for _, region := range regions {
		if region.FoodName == "" || region.Confidence < th.VendorConfidence {
			continue
		}
		if !seen[region.FoodName] {
			seen[region.FoodName] = true
			d.FoodNames = append(d.FoodNames, region.FoodName)
		}
		if region.Payload != nil {
			d.Regions[region.ID] = region.Payload
		}
	}

	for _, c := range clusters {
		floor := th.DetectorScore
		if c.TopSource.Kind == SourceVendor {
			floor = th.FusedVendor
		}
		if c.Score < floor {
			continue
		}
		name := c.Label
		if name == "" && reg != nil {
			name, _ = reg.Name(c.ClassID)
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		d.FoodNames = append(d.FoodNames, name)
	}

	return d
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
