package relayService

import (
	"DetectionRelay/internal/api/relay"
	"DetectionRelay/internal/entity"
	"DetectionRelay/pkg/artifact"
	"DetectionRelay/pkg/detectionclient"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IRelayService interface {
	HandleClientUpload(ctx context.Context, upload relay.Upload) (*relay.RelayResponse, error)
	Health() relay.HealthResponse
}

type ArtifactStore interface {
	SaveUpload(ctx context.Context, id artifact.Identity, data []byte) (string, error)
	SaveResultBytes(ctx context.Context, id artifact.Identity, data []byte) (string, error)
	SaveResultJSON(ctx context.Context, id artifact.Identity, detections []entity.Detection) (string, error)
}

type relayService struct {
	log    *logrus.Logger
	client detectionclient.Client
	store  ArtifactStore
	now    func() time.Time
}

func NewRelayService(
	log *logrus.Logger,
	client detectionclient.Client,
	store ArtifactStore,
) IRelayService {
	return &relayService{
		log:    log,
		client: client,
		store:  store,
		now:    time.Now,
	}
}
