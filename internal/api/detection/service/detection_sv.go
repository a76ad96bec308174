package detectionService

import (
	"DetectionRelay/internal/api/detection"
	"DetectionRelay/pkg/artifact"
	contextPkg "DetectionRelay/pkg/context"
	"DetectionRelay/pkg/log"
	"DetectionRelay/pkg/render"
	"errors"
	"fmt"

	"golang.org/x/net/context"
)

func (s *detectionService) Detect(ctx context.Context, upload detection.Upload) (*detection.DetectResponse, error) {
	if len(upload.Content) == 0 {
		return nil, detection.ErrNoFile
	}

	id := artifact.NewIdentity(upload.Filename, s.now())
	fields := log.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"identity":   id.Key,
	}

	if _, err := s.store.SaveUpload(ctx, id, upload.Content); err != nil {
		return nil, err
	}

	img, err := render.Decode(upload.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detection.ErrInvalidImage, err)
	}

	outcome, err := s.cascade.Detect(ctx, img)
	if err != nil {
		return nil, err
	}

	result := outcome.Result()

	// An empty outcome keeps the upload byte for byte as its result image.
	if outcome.Kind == OutcomeFound {
		_, err = s.store.SaveResultImage(ctx, id, s.renderer.Render(img, outcome.Detections))
	} else {
		_, err = s.store.SaveResultBytes(ctx, id, upload.Content)
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.store.SaveResultJSON(ctx, id, result.Detections); err != nil {
		return nil, err
	}

	resp := &detection.DetectResponse{
		Success:       true,
		Detections:    result.Detections,
		ResultImage:   id.ImageName(),
		TotalObjects:  result.TotalObjects,
		ThresholdUsed: result.ThresholdUsed,
		NoDetections:  result.NoDetections,
	}
	if outcome.Kind == OutcomeFound {
		resp.Message = fmt.Sprintf("Detected %d object(s) with confidence threshold %v", result.TotalObjects, outcome.Threshold)
	} else {
		resp.Message = detection.MessageNoDetections
	}

	fields["outcome"] = outcome.Kind.String()
	fields["threshold"] = outcome.Threshold
	fields["total_objects"] = result.TotalObjects
	s.log.WithFields(fields).Info("Detection finished")

	return resp, nil
}

func (s *detectionService) LoadResult(ctx context.Context, name string) ([]byte, error) {
	data, err := s.store.Load(ctx, name)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return nil, detection.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *detectionService) Health() detection.HealthResponse {
	return detection.HealthResponse{
		Status:  "healthy",
		Service: detection.ServiceName,
		Model:   s.cascade.adapter.Name(),
		Device:  s.cascade.adapter.Device(),
	}
}
