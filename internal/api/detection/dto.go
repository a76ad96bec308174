package detection

import "DetectionRelay/internal/entity"

const (
	MessageNoDetections = "Couldn't detect anything even with relaxed thresholds but COCO's still clueless."
	ServiceName         = "detection-service"
)

type Upload struct {
	Filename string `validate:"required"`
	Content  []byte `validate:"required"`
}

type DetectResponse struct {
	Success       bool               `json:"success"`
	Detections    []entity.Detection `json:"detections"`
	ResultImage   string             `json:"result_image"`
	TotalObjects  int                `json:"total_objects"`
	ThresholdUsed *float64           `json:"threshold_used"`
	Message       string             `json:"message"`
	NoDetections  bool               `json:"no_detections,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Model   string `json:"model"`
	Device  string `json:"device"`
}
