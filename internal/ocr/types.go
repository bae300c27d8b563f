package ocr

// Result is the distilled outcome of one text recognition call.
type Result struct {
	Status string   // "SUCCESS" or "ERROR" as reported by the API
	Items  []string // recognized item texts in reading order
}

// Usable reports whether the result carries structured text the decision
// policy can act on. An ERROR status or an empty item list falls through to
// vision fusion.
func (r *Result) Usable() bool {
	return r != nil && r.Status != statusError && len(r.Items) > 0
}

const (
	statusError   = "ERROR"
	statusSuccess = "SUCCESS"
)

// Wire types for the receipt OCR API response. Only the fields the service
// consumes are declared.
type apiResponse struct {
	Images []apiImage `json:"images"`
}

type apiImage struct {
	InferResult string      `json:"inferResult"`
	Receipt     *apiReceipt `json:"receipt"`
}

type apiReceipt struct {
	Result struct {
		SubResults []struct {
			Items []struct {
				Name struct {
					Text string `json:"text"`
				} `json:"name"`
			} `json:"items"`
		} `json:"subResults"`
	} `json:"result"`
}

type apiRequest struct {
	Images    []apiRequestImage `json:"images"`
	RequestID string            `json:"requestId"`
	Version   string            `json:"version"`
	Timestamp int64             `json:"timestamp"`
}

type apiRequestImage struct {
	Format string `json:"format"`
	Name   string `json:"name"`
}
