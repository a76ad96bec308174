package relayService

import (
	"DetectionRelay/internal/api/relay"
	"DetectionRelay/pkg/artifact"
	contextPkg "DetectionRelay/pkg/context"
	"DetectionRelay/pkg/log"
	"fmt"
	"net/url"

	"golang.org/x/net/context"
)

// HandleClientUpload stores the upload, forwards it to the worker, then
// copies the worker's result image and detections next to it. All local
// artifacts share one identity derived here, independent of the worker's.
func (s *relayService) HandleClientUpload(ctx context.Context, upload relay.Upload) (*relay.RelayResponse, error) {
	if len(upload.Content) == 0 {
		return nil, relay.ErrNoFile
	}

	id := artifact.NewIdentity(upload.Filename, s.now())
	fields := log.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"identity":   id.Key,
	}

	if _, err := s.store.SaveUpload(ctx, id, upload.Content); err != nil {
		return nil, err
	}

	remote, err := s.client.Detect(ctx, artifact.SanitizeFilename(upload.Filename), upload.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", relay.ErrRemoteService, err)
	}

	fields["remote_result"] = remote.ResultImage
	s.log.WithFields(fields).Debug("Detection service responded")

	resultImage, err := s.client.FetchResult(ctx, remote.ResultImage)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", relay.ErrRelayIncomplete, err)
	}

	if _, err := s.store.SaveResultBytes(ctx, id, resultImage); err != nil {
		return nil, err
	}
	if _, err := s.store.SaveResultJSON(ctx, id, remote.Detections); err != nil {
		return nil, err
	}

	fields["total_objects"] = remote.TotalObjects
	s.log.WithFields(fields).Info("Relay finished")

	return &relay.RelayResponse{
		Success:       true,
		OriginalImage: staticURL("uploads", id.ImageName()),
		ResultImage:   staticURL("results", id.ImageName()),
		Detections:    remote.Detections,
		JSONFile:      staticURL("results", id.JSONName()),
		TotalObjects:  remote.TotalObjects,
		ThresholdUsed: remote.ThresholdUsed,
		Message:       remote.Message,
		NoDetections:  remote.NoDetections,
	}, nil
}

func (s *relayService) Health() relay.HealthResponse {
	return relay.HealthResponse{
		Status:  "healthy",
		Service: relay.ServiceName,
	}
}

func staticURL(dir, name string) string {
	return relay.StaticPrefix + "/" + dir + "/" + url.PathEscape(name)
}
