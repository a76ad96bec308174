package inference

import (
	"DetectionRelay/internal/entity"
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

type onnxAdapter struct {
	opts       Options
	pool       *sessionPool
	device     string
	numAnchors int
	ownsEnv    bool
}

// NewONNX loads a YOLOv8 ONNX export and prepares a pool of sessions for it.
func NewONNX(opts Options) (Adapter, error) {
	opts.setDefaults()
	if opts.ModelPath == "" {
		return nil, errors.New("model path is required")
	}

	a := &onnxAdapter{
		opts:       opts,
		device:     DeviceCPU,
		numAnchors: anchorCount(opts.InputSize),
	}

	if !ort.IsInitialized() {
		if opts.LibraryPath != "" {
			ort.SetSharedLibraryPath(opts.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("error initializing onnxruntime: %w", err)
		}
		a.ownsEnv = true
	}

	if opts.UseCUDA && cudaAvailable() {
		a.device = DeviceCUDA
	}

	pool, err := newSessionPool(opts.PoolSize, DefaultAcquireTimeout, a.newSession)
	if err != nil {
		a.destroyEnv()
		return nil, err
	}
	a.pool = pool

	return a, nil
}

func (a *onnxAdapter) Name() string   { return a.opts.ModelName }
func (a *onnxAdapter) Device() string { return a.device }

func (a *onnxAdapter) Infer(ctx context.Context, img image.Image, confidence float32) ([]entity.Detection, error) {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("empty image %dx%d", bounds.Dx(), bounds.Dy())
	}

	lb := newLetterbox(bounds.Dx(), bounds.Dy(), a.opts.InputSize)
	input := lb.apply(img)

	s, err := a.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer a.pool.Release(s)

	fillTensor(input, s.input.GetData())
	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("error running session: %w", err)
	}

	cands := decodeOutput(s.output.GetData(), len(a.opts.Classes), a.numAnchors, confidence)
	cands = nonMaxSuppression(cands, a.opts.NmsIouThreshold)

	return toDetections(cands, lb, a.opts.Classes), nil
}

func (a *onnxAdapter) Close() error {
	if a.pool != nil {
		logPoolStats(a.opts.Logger, a.pool.Stats())
		a.pool.Destroy()
	}
	return a.destroyEnv()
}

func (a *onnxAdapter) destroyEnv() error {
	if !a.ownsEnv {
		return nil
	}
	a.ownsEnv = false
	return ort.DestroyEnvironment()
}

func (a *onnxAdapter) newSession() (*modelSession, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	threads := max(1, runtime.NumCPU()/a.opts.PoolSize)
	if err := options.SetIntraOpNumThreads(threads); err != nil {
		return nil, fmt.Errorf("error setting thread count: %w", err)
	}
	if a.device == DeviceCUDA {
		if err := appendCUDA(options); err != nil {
			return nil, fmt.Errorf("error enabling cuda: %w", err)
		}
	}

	size := int64(a.opts.InputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, int64(4+len(a.opts.Classes)), int64(a.numAnchors))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		a.opts.ModelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &modelSession{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
	}, nil
}

func cudaAvailable() bool {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return false
	}
	defer options.Destroy()
	return appendCUDA(options) == nil
}

func appendCUDA(options *ort.SessionOptions) error {
	cuda, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return err
	}
	defer cuda.Destroy()
	return options.AppendExecutionProviderCUDA(cuda)
}

// anchorCount is the number of predictions a YOLOv8 head emits for a square
// input, one per cell across the stride 8, 16 and 32 grids.
func anchorCount(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		g := size / stride
		n += g * g
	}
	return n
}
