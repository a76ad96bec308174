package detectionService

import (
	"DetectionRelay/internal/api/detection"
	"DetectionRelay/internal/entity"
	contextPkg "DetectionRelay/pkg/context"
	"DetectionRelay/pkg/inference"
	"DetectionRelay/pkg/log"
	"errors"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

var DefaultThresholds = []float64{0.25, 0.15, 0.10, 0.05}

type OutcomeKind int

const (
	OutcomeFound OutcomeKind = iota
	OutcomeExhausted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFound:
		return "found"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Outcome of one cascade run. For OutcomeFound, Threshold is the first
// threshold that produced detections; for OutcomeExhausted it is the last
// threshold tried and Detections is empty.
type Outcome struct {
	Kind       OutcomeKind
	Threshold  float64
	Detections []entity.Detection
}

func (o Outcome) Result() entity.DetectionResult {
	if o.Kind == OutcomeFound {
		return entity.NewFoundResult(o.Threshold, o.Detections)
	}
	return entity.NewEmptyResult(o.Threshold)
}

type Cascade struct {
	adapter    inference.Adapter
	thresholds []float64
	log        *logrus.Logger
}

func NewCascade(log *logrus.Logger, adapter inference.Adapter, thresholds []float64) (*Cascade, error) {
	if adapter == nil {
		return nil, errors.New("inference adapter is required")
	}
	if err := ValidateThresholds(thresholds); err != nil {
		return nil, err
	}

	return &Cascade{
		adapter:    adapter,
		thresholds: append([]float64(nil), thresholds...),
		log:        log,
	}, nil
}

// ValidateThresholds requires a non-empty, strictly descending list in (0, 1].
func ValidateThresholds(thresholds []float64) error {
	if len(thresholds) == 0 {
		return errors.New("threshold sequence is empty")
	}
	for i, t := range thresholds {
		if t <= 0 || t > 1 {
			return fmt.Errorf("threshold %v out of range (0, 1]", t)
		}
		if i > 0 && t >= thresholds[i-1] {
			return fmt.Errorf("thresholds must be strictly descending: %v after %v", t, thresholds[i-1])
		}
	}
	return nil
}

func (c *Cascade) Thresholds() []float64 {
	return append([]float64(nil), c.thresholds...)
}

// Detect tries each threshold in order and stops at the first one that
// yields detections. An adapter error aborts the run.
func (c *Cascade) Detect(ctx context.Context, img image.Image) (Outcome, error) {
	for _, t := range c.thresholds {
		dets, err := c.adapter.Infer(ctx, img, float32(t))
		if err != nil {
			return Outcome{}, fmt.Errorf("%w: threshold %.2f: %v", detection.ErrInferenceFailure, t, err)
		}

		c.log.WithFields(log.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"threshold":  t,
			"detections": len(dets),
		}).Debug("Cascade attempt finished")

		if len(dets) > 0 {
			return Outcome{Kind: OutcomeFound, Threshold: t, Detections: dets}, nil
		}
	}

	return Outcome{
		Kind:       OutcomeExhausted,
		Threshold:  c.thresholds[len(c.thresholds)-1],
		Detections: []entity.Detection{},
	}, nil
}
