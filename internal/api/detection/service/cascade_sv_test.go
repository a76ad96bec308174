package detectionService

import (
	"DetectionRelay/internal/api/detection"
	"DetectionRelay/internal/entity"
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

var catDetection = entity.Detection{Class: "cat", Confidence: 0.31, BBox: entity.BBox{10, 10, 100, 100}}

func newTestCascade(t *testing.T, adapter *fakeAdapter) *Cascade {
	t.Helper()
	c, err := NewCascade(quietLogger(), adapter, DefaultThresholds)
	require.NoError(t, err)
	return c
}

func blankImage() image.Image {
	return image.NewNRGBA(image.Rect(0, 0, 32, 32))
}

func TestCascadeStopsAtFirstHit(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.byThreshold[0.25] = []entity.Detection{catDetection}

	outcome, err := newTestCascade(t, adapter).Detect(context.Background(), blankImage())
	require.NoError(t, err)
	require.Equal(t, OutcomeFound, outcome.Kind)
	require.Equal(t, 0.25, outcome.Threshold)
	require.Equal(t, []entity.Detection{catDetection}, outcome.Detections)
	require.Equal(t, []float32{0.25}, adapter.Calls())
}

func TestCascadeRelaxesUntilHit(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.byThreshold[0.10] = []entity.Detection{catDetection}

	outcome, err := newTestCascade(t, adapter).Detect(context.Background(), blankImage())
	require.NoError(t, err)
	require.Equal(t, OutcomeFound, outcome.Kind)
	require.Equal(t, 0.10, outcome.Threshold)
	require.Equal(t, []float32{0.25, 0.15, 0.10}, adapter.Calls())

	result := outcome.Result()
	require.Equal(t, 1, result.TotalObjects)
	require.Equal(t, 0.10, *result.ThresholdUsed)
	require.False(t, result.NoDetections)
}

func TestCascadeExhausted(t *testing.T) {
	adapter := newFakeAdapter()

	outcome, err := newTestCascade(t, adapter).Detect(context.Background(), blankImage())
	require.NoError(t, err)
	require.Equal(t, OutcomeExhausted, outcome.Kind)
	require.Equal(t, 0.05, outcome.Threshold)
	require.NotNil(t, outcome.Detections)
	require.Empty(t, outcome.Detections)
	require.Equal(t, []float32{0.25, 0.15, 0.10, 0.05}, adapter.Calls())

	result := outcome.Result()
	require.True(t, result.NoDetections)
	require.Equal(t, 0, result.TotalObjects)
	require.Equal(t, 0.05, *result.ThresholdUsed)
}

func TestCascadeAbortsOnAdapterError(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.errAt[0.15] = errors.New("session crashed")

	_, err := newTestCascade(t, adapter).Detect(context.Background(), blankImage())
	require.ErrorIs(t, err, detection.ErrInferenceFailure)
	require.ErrorContains(t, err, "session crashed")
	require.Equal(t, []float32{0.25, 0.15}, adapter.Calls())
}

func TestValidateThresholds(t *testing.T) {
	require.NoError(t, ValidateThresholds(DefaultThresholds))
	require.NoError(t, ValidateThresholds([]float64{1}))

	for _, bad := range [][]float64{
		nil,
		{},
		{0.1, 0.2},
		{0.25, 0.25},
		{1.5, 0.5},
		{0.5, 0},
	} {
		require.Error(t, ValidateThresholds(bad), "%v", bad)
	}

	_, err := NewCascade(quietLogger(), nil, DefaultThresholds)
	require.Error(t, err)
}

func TestCascadeCopiesThresholds(t *testing.T) {
	thresholds := []float64{0.5, 0.2}
	c, err := NewCascade(quietLogger(), newFakeAdapter(), thresholds)
	require.NoError(t, err)

	thresholds[0] = 0.9
	require.Equal(t, []float64{0.5, 0.2}, c.Thresholds())
}
