package fusion

// InferMode distinguishes how the final food list was produced. The wire
// value is the bare integer consumed by existing clients.
type InferMode int

const (
	// TextOnly means recognized receipt/menu text decided the result.
	TextOnly InferMode = 0
	// VisionFused means the vendor API and local detectors decided it.
	VisionFused InferMode = 1
)

// Record is the externally consumed result shape, serialized at the HTTP
// boundary and written to the audit file.
type Record struct {
	InferResult InferMode `json:"inferResult"`
	Predict     Predict   `json:"predict"`
}

// Predict holds the final food list and the vendor's per-region payloads.
type Predict struct {
	FoodNames   []string                  `json:"foodNames"`
	KTFoodsInfo map[string]map[string]any `json:"ktFoodsInfo"`
}

// Assemble packages a decision into the wire record. It performs no decision
// logic; it only guarantees the record is serialization-ready (no nil
// collections, values copied out of the decision).
func Assemble(d Decision) Record {
	names := make([]string, len(d.FoodNames))
	copy(names, d.FoodNames)

	regions := make(map[string]map[string]any, len(d.Regions))
	for id, payload := range d.Regions {
		p := make(map[string]any, len(payload))
		for k, v := range payload {
			p[k] = v
		}
		regions[id] = p
	}

	return Record{
		InferResult: d.Mode,
		Predict: Predict{
			FoodNames:   names,
			KTFoodsInfo: regions,
		},
	}
}
