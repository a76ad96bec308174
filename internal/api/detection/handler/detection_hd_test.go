package detectionHandler

import (
	"DetectionRelay/internal/api/detection"
	detectionService "DetectionRelay/internal/api/detection/service"
	"DetectionRelay/internal/entity"
	"DetectionRelay/internal/middleware"
	"DetectionRelay/pkg/artifact"
	"DetectionRelay/pkg/render"
	"DetectionRelay/pkg/utils"
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	detections map[float32][]entity.Detection
}

func (s *stubAdapter) Infer(_ context.Context, _ image.Image, confidence float32) ([]entity.Detection, error) {
	return s.detections[confidence], nil
}

func (s *stubAdapter) Name() string   { return "yolov8s" }
func (s *stubAdapter) Device() string { return "cpu" }
func (s *stubAdapter) Close() error   { return nil }

func newTestApp(t *testing.T, adapter *stubAdapter) *fiber.App {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	root := t.TempDir()

	store, err := artifact.New(logger, filepath.Join(root, "uploads"), filepath.Join(root, "results"))
	require.NoError(t, err)
	renderer, err := render.New()
	require.NoError(t, err)
	cascade, err := detectionService.NewCascade(logger, adapter, detectionService.DefaultThresholds)
	require.NoError(t, err)

	u := utils.New(0)
	mw := middleware.New(logger, u)
	svc := detectionService.NewDetectionService(logger, cascade, renderer, store)

	app := fiber.New(fiber.Config{JSONEncoder: jsoniter.Marshal, JSONDecoder: jsoniter.Unmarshal})
	app.Use(mw.NewRequestIDMiddleware())
	New(logger, validator.New(), mw, svc, u).Start(app)
	return app
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 120, 120))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 251)
	}
	img.SetNRGBA(0, 0, color.NRGBA{A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(fiber.MethodPost, "/detect", &body)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, jsoniter.Unmarshal(data, v), string(data))
}

func TestDetectEndpoint(t *testing.T) {
	app := newTestApp(t, &stubAdapter{detections: map[float32][]entity.Detection{
		0.25: {{Class: "cat", Confidence: 0.31, BBox: entity.BBox{10, 10, 100, 100}}},
	}})

	resp, err := app.Test(uploadRequest(t, "file", "cat.png", pngBytes(t)), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body detection.DetectResponse
	decodeBody(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, 1, body.TotalObjects)
	require.Equal(t, 0.25, *body.ThresholdUsed)
	require.Contains(t, body.ResultImage, "_cat.png")

	result, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/results/"+body.ResultImage, nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, result.StatusCode)
	require.Equal(t, "image/png", result.Header.Get(fiber.HeaderContentType))
}

func TestDetectEndpointNoDetections(t *testing.T) {
	app := newTestApp(t, &stubAdapter{})

	resp, err := app.Test(uploadRequest(t, "file", "blank.png", pngBytes(t)), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	decodeBody(t, resp, &body)
	require.Equal(t, true, body["no_detections"])
	require.Equal(t, 0.05, body["threshold_used"])
	require.Equal(t, detection.MessageNoDetections, body["message"])
	require.Equal(t, []interface{}{}, body["detections"])
}

func TestDetectEndpointInvalidImage(t *testing.T) {
	app := newTestApp(t, &stubAdapter{})

	resp, err := app.Test(uploadRequest(t, "file", "notes.txt", []byte("plain text")), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body map[string]interface{}
	decodeBody(t, resp, &body)
	require.Equal(t, false, body["success"])
	require.Contains(t, body["error"], "invalid image")
}

func TestDetectEndpointMissingFile(t *testing.T) {
	app := newTestApp(t, &stubAdapter{})

	resp, err := app.Test(uploadRequest(t, "image", "cat.png", pngBytes(t)), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestResultNotFound(t *testing.T) {
	app := newTestApp(t, &stubAdapter{})

	for _, path := range []string{"/results/unknown.jpg", "/results/..%2Fuploads%2Fx.jpg"} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil), -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusNotFound, resp.StatusCode, path)

		var body map[string]interface{}
		decodeBody(t, resp, &body)
		require.Equal(t, map[string]interface{}{"error": "File not found"}, body)
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t, &stubAdapter{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil), -1)
	require.NoError(t, err)

	var body detection.HealthResponse
	decodeBody(t, resp, &body)
	require.Equal(t, detection.HealthResponse{Status: "healthy", Service: "detection-service", Model: "yolov8s", Device: "cpu"}, body)
}
