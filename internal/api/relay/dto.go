package relay

import "DetectionRelay/internal/entity"

const (
	ServiceName  = "frontend"
	StaticPrefix = "/static"
)

type Upload struct {
	Filename string `validate:"required"`
	Content  []byte `validate:"required"`
}

type RelayResponse struct {
	Success       bool               `json:"success"`
	OriginalImage string             `json:"original_image"`
	ResultImage   string             `json:"result_image"`
	Detections    []entity.Detection `json:"detections"`
	JSONFile      string             `json:"json_file"`
	TotalObjects  int                `json:"total_objects"`
	ThresholdUsed *float64           `json:"threshold_used"`
	Message       string             `json:"message"`
	NoDetections  bool               `json:"no_detections"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
