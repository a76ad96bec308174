package entity

// BBox is an axis-aligned box in source-image pixels: [x1, y1, x2, y2].
type BBox [4]float64

func (b BBox) Valid() bool {
	return b[0] < b[2] && b[1] < b[3]
}

type Detection struct {
	Class      string  `json:"class" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gt=0,lte=1"`
	BBox       BBox    `json:"bbox"`
}

type DetectionResult struct {
	Detections    []Detection `json:"detections"`
	ThresholdUsed *float64    `json:"threshold_used"`
	TotalObjects  int         `json:"total_objects"`
	NoDetections  bool        `json:"no_detections"`
}

func NewFoundResult(threshold float64, detections []Detection) DetectionResult {
	return DetectionResult{
		Detections:    detections,
		ThresholdUsed: &threshold,
		TotalObjects:  len(detections),
	}
}

// NewEmptyResult reports the last threshold tried so clients can see how far
// the search was relaxed.
func NewEmptyResult(lastThreshold float64) DetectionResult {
	return DetectionResult{
		Detections:    []Detection{},
		ThresholdUsed: &lastThreshold,
		NoDetections:  true,
	}
}
