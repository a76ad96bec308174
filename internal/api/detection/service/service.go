package detectionService

import (
	"DetectionRelay/internal/api/detection"
	"DetectionRelay/internal/entity"
	"DetectionRelay/pkg/artifact"
	"image"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IDetectionService interface {
	Detect(ctx context.Context, upload detection.Upload) (*detection.DetectResponse, error)
	LoadResult(ctx context.Context, name string) ([]byte, error)
	Health() detection.HealthResponse
}

type Renderer interface {
	Render(img image.Image, detections []entity.Detection) image.Image
}

type ArtifactStore interface {
	SaveUpload(ctx context.Context, id artifact.Identity, data []byte) (string, error)
	SaveResultImage(ctx context.Context, id artifact.Identity, img image.Image) (string, error)
	SaveResultBytes(ctx context.Context, id artifact.Identity, data []byte) (string, error)
	SaveResultJSON(ctx context.Context, id artifact.Identity, detections []entity.Detection) (string, error)
	Load(ctx context.Context, name string) ([]byte, error)
}

type detectionService struct {
	log      *logrus.Logger
	cascade  *Cascade
	renderer Renderer
	store    ArtifactStore
	now      func() time.Time
}

func NewDetectionService(
	log *logrus.Logger,
	cascade *Cascade,
	renderer Renderer,
	store ArtifactStore,
) IDetectionService {
	return &detectionService{
		log:      log,
		cascade:  cascade,
		renderer: renderer,
		store:    store,
		now:      time.Now,
	}
}
