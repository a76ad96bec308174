package detectionService

import (
	"DetectionRelay/internal/entity"
	"context"
	"image"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

type fakeAdapter struct {
	mu          sync.Mutex
	byThreshold map[float32][]entity.Detection
	errAt       map[float32]error
	calls       []float32
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		byThreshold: map[float32][]entity.Detection{},
		errAt:       map[float32]error{},
	}
}

func (f *fakeAdapter) Infer(_ context.Context, _ image.Image, confidence float32) ([]entity.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, confidence)
	if err := f.errAt[confidence]; err != nil {
		return nil, err
	}
	return f.byThreshold[confidence], nil
}

func (f *fakeAdapter) Calls() []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float32(nil), f.calls...)
}

func (f *fakeAdapter) Name() string   { return "yolov8s" }
func (f *fakeAdapter) Device() string { return "cpu" }
func (f *fakeAdapter) Close() error   { return nil }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
