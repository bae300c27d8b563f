package ktvision

import "encoding/json"

// Region is one spatial area the vendor classified, with its top prediction
// and the raw payload passed through to the result record.
type Region struct {
	ID         string
	FoodName   string
	Confidence float64
	Payload    map[string]any

	// Bounding box in source pixel coordinates, valid when HasBox is set.
	HasBox bool
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// Wire types for the vendor response. data[0] maps region id to region.
type apiResponse struct {
	Code json.RawMessage        `json:"code"`
	Data []map[string]apiRegion `json:"data"`
}

type apiRegion struct {
	PredictionTop1 json.RawMessage `json:"prediction_top1"`
	BoundingBox    *apiBoundingBox `json:"bounding_box"`
}

type apiBoundingBox struct {
	LeftTop     apiPoint `json:"left_top"`
	RightBottom apiPoint `json:"right_bottom"`
}

type apiPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
