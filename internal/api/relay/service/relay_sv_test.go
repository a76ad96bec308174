package relayService

import (
	"DetectionRelay/internal/api/relay"
	"DetectionRelay/internal/entity"
	"DetectionRelay/pkg/artifact"
	"DetectionRelay/pkg/detectionclient"
	"DetectionRelay/pkg/response"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"path/filepath"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

const workerBody = `{"success":true,"detections":[{"class":"cat","confidence":0.31,"bbox":[10,10,100,100]}],"result_image":"20240501_092959_cat.jpg","total_objects":1,"threshold_used":0.25,"message":"Detected 1 object(s) with confidence threshold 0.25"}`

type fakeWorker struct {
	detectStatus int
	resultStatus int
	detectCalls  int
}

func (f *fakeWorker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/detect":
		f.detectCalls++
		if f.detectStatus != http.StatusOK {
			w.WriteHeader(f.detectStatus)
			_, _ = w.Write([]byte(`{"success":false,"error":"model crashed"}`))
			return
		}
		_, _ = w.Write([]byte(workerBody))
	case r.URL.Path == "/results/20240501_092959_cat.jpg":
		if f.resultStatus != http.StatusOK {
			w.WriteHeader(f.resultStatus)
			_, _ = w.Write([]byte(`{"error":"File not found"}`))
			return
		}
		_, _ = w.Write([]byte("annotated-bytes"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type fixture struct {
	svc    IRelayService
	store  *artifact.Store
	root   string
	worker *fakeWorker
}

func newFixture(t *testing.T, worker *fakeWorker) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	srv := httptest.NewServer(worker)
	t.Cleanup(srv.Close)

	root := t.TempDir()
	store, err := artifact.New(logger, filepath.Join(root, "uploads"), filepath.Join(root, "results"))
	require.NoError(t, err)

	svc := NewRelayService(logger, detectionclient.New(srv.URL, time.Second, nil), store)
	svc.(*relayService).now = func() time.Time { return fixedNow }

	return &fixture{svc: svc, store: store, root: root, worker: worker}
}

func TestRelaySuccess(t *testing.T) {
	f := newFixture(t, &fakeWorker{detectStatus: http.StatusOK, resultStatus: http.StatusOK})
	ctx := context.Background()

	resp, err := f.svc.HandleClientUpload(ctx, relay.Upload{Filename: "cat.jpg", Content: []byte("raw-jpeg")})
	require.NoError(t, err)

	require.True(t, resp.Success)
	require.Equal(t, "/static/uploads/20240501_093000_cat.jpg", resp.OriginalImage)
	require.Equal(t, "/static/results/20240501_093000_cat.jpg", resp.ResultImage)
	require.Equal(t, "/static/results/20240501_093000_cat.json", resp.JSONFile)
	require.Equal(t, 1, resp.TotalObjects)
	require.Equal(t, 0.25, *resp.ThresholdUsed)
	require.False(t, resp.NoDetections)
	require.Equal(t, "Detected 1 object(s) with confidence threshold 0.25", resp.Message)

	result, err := f.store.Load(ctx, "20240501_093000_cat.jpg")
	require.NoError(t, err)
	require.Equal(t, []byte("annotated-bytes"), result)

	raw, err := f.store.Load(ctx, path.Base(resp.JSONFile))
	require.NoError(t, err)
	var dets []entity.Detection
	require.NoError(t, jsoniter.Unmarshal(raw, &dets))
	require.Equal(t, []entity.Detection{{Class: "cat", Confidence: 0.31, BBox: entity.BBox{10, 10, 100, 100}}}, dets)
}

func TestRelayWorkerFailure(t *testing.T) {
	f := newFixture(t, &fakeWorker{detectStatus: http.StatusInternalServerError})

	_, err := f.svc.HandleClientUpload(context.Background(), relay.Upload{Filename: "cat.jpg", Content: []byte("raw-jpeg")})
	require.ErrorIs(t, err, relay.ErrRemoteService)
	require.ErrorContains(t, err, "Detection service returned 500")
	require.Equal(t, http.StatusInternalServerError, response.StatusCode(err))

	require.FileExists(t, filepath.Join(f.root, "uploads", "20240501_093000_cat.jpg"))
	require.NoFileExists(t, filepath.Join(f.root, "results", "20240501_093000_cat.jpg"))
	require.NoFileExists(t, filepath.Join(f.root, "results", "20240501_093000_cat.json"))
}

func TestRelayFetchFailure(t *testing.T) {
	f := newFixture(t, &fakeWorker{detectStatus: http.StatusOK, resultStatus: http.StatusNotFound})

	_, err := f.svc.HandleClientUpload(context.Background(), relay.Upload{Filename: "cat.jpg", Content: []byte("raw-jpeg")})
	require.ErrorIs(t, err, relay.ErrRelayIncomplete)
	require.ErrorContains(t, err, "404")

	require.NoFileExists(t, filepath.Join(f.root, "results", "20240501_093000_cat.jpg"))
	require.NoFileExists(t, filepath.Join(f.root, "results", "20240501_093000_cat.json"))
}

func TestRelayEmptyUpload(t *testing.T) {
	worker := &fakeWorker{detectStatus: http.StatusOK, resultStatus: http.StatusOK}
	f := newFixture(t, worker)

	_, err := f.svc.HandleClientUpload(context.Background(), relay.Upload{Filename: "cat.jpg"})
	require.ErrorIs(t, err, relay.ErrNoFile)
	require.Zero(t, worker.detectCalls)
}

func TestStaticURLEscapesNames(t *testing.T) {
	require.Equal(t, "/static/results/20240501_093000_my%20cat.jpg", staticURL("results", "20240501_093000_my cat.jpg"))
}
