package inference

import (
	"DetectionRelay/internal/entity"
	"context"
	"errors"
	"image"

	"github.com/sirupsen/logrus"
)

const (
	DefaultInputSize       = 640
	DefaultNmsIouThreshold = 0.45
	DefaultPoolSize        = 2
	DefaultModelName       = "yolov8s"
)

var ErrPoolClosed = errors.New("inference pool is closed")

// Adapter maps an image to detections at a given confidence threshold.
// Implementations must be safe for concurrent use; the threshold is a call
// argument and never shared state.
type Adapter interface {
	Infer(ctx context.Context, img image.Image, confidence float32) ([]entity.Detection, error)
	Name() string
	Device() string
	Close() error
}

type Options struct {
	ModelPath       string
	ModelName       string
	LibraryPath     string
	InputSize       int
	NmsIouThreshold float32
	PoolSize        int
	UseCUDA         bool
	Classes         []string
	Logger          *logrus.Logger
}

func (o *Options) setDefaults() {
	if o.ModelName == "" {
		o.ModelName = DefaultModelName
	}
	if o.InputSize <= 0 {
		o.InputSize = DefaultInputSize
	}
	if o.NmsIouThreshold <= 0 {
		o.NmsIouThreshold = DefaultNmsIouThreshold
	}
	if o.PoolSize <= 0 {
		o.PoolSize = DefaultPoolSize
	}
	if len(o.Classes) == 0 {
		o.Classes = COCOClasses
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
}
