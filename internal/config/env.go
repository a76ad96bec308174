package config

import (
	detectionService "DetectionRelay/internal/api/detection/service"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const defaultBodyLimitMB = 50

type S3 struct {
	Bucket          string `validate:"required"`
	Region          string `validate:"required"`
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

type Detection struct {
	Port            string `validate:"required,numeric"`
	Env             string
	UploadDir       string `validate:"required"`
	ResultDir       string `validate:"required"`
	ModelPath       string `validate:"required"`
	ModelName       string `validate:"required"`
	OnnxRuntimeLib  string
	UseCUDA         bool
	PoolSize        int       `validate:"gt=0"`
	InputSize       int       `validate:"gt=0"`
	NmsIouThreshold float64   `validate:"gt=0,lte=1"`
	Thresholds      []float64 `validate:"required,min=1,dive,gt=0,lte=1"`
	BodyLimitMB     int       `validate:"gt=0"`
	S3              *S3       `validate:"omitempty"`
}

type Frontend struct {
	Port                string `validate:"required,numeric"`
	Env                 string
	StaticDir           string        `validate:"required"`
	DetectionServiceURL string        `validate:"required,url"`
	DetectionTimeout    time.Duration `validate:"gt=0"`
	BodyLimitMB         int           `validate:"gt=0"`
	S3                  *S3           `validate:"omitempty"`
}

func LoadDetection(v *validator.Validate) (*Detection, error) {
	p := &envParser{}
	cfg := &Detection{
		Port:            getEnv("APP_PORT", "8001"),
		Env:             getEnv("APP_ENV", "development"),
		UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
		ResultDir:       getEnv("RESULT_DIR", "results"),
		ModelPath:       getEnv("MODEL_PATH", "models/yolov8s.onnx"),
		ModelName:       getEnv("MODEL_NAME", "yolov8s"),
		OnnxRuntimeLib:  getEnv("ONNXRUNTIME_LIB", ""),
		UseCUDA:         p.bool("USE_CUDA", true),
		PoolSize:        p.int("INFERENCE_POOL_SIZE", 2),
		InputSize:       p.int("INFERENCE_INPUT_SIZE", 640),
		NmsIouThreshold: p.float("NMS_IOU_THRESHOLD", 0.45),
		Thresholds:      p.floats("DETECTION_THRESHOLDS", detectionService.DefaultThresholds),
		BodyLimitMB:     p.int("BODY_LIMIT_MB", defaultBodyLimitMB),
		S3:              loadS3(),
	}
	if err := p.err(); err != nil {
		return nil, err
	}

	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid detection config: %w", err)
	}
	if err := detectionService.ValidateThresholds(cfg.Thresholds); err != nil {
		return nil, fmt.Errorf("invalid DETECTION_THRESHOLDS: %w", err)
	}
	if cfg.InputSize%32 != 0 {
		return nil, fmt.Errorf("INFERENCE_INPUT_SIZE must be a multiple of 32, got %d", cfg.InputSize)
	}

	return cfg, nil
}

func LoadFrontend(v *validator.Validate) (*Frontend, error) {
	p := &envParser{}
	cfg := &Frontend{
		Port:                getEnv("APP_PORT", "8000"),
		Env:                 getEnv("APP_ENV", "development"),
		StaticDir:           getEnv("STATIC_DIR", "static"),
		DetectionServiceURL: getEnv("DETECTION_SERVICE_URL", "http://detection-service:8001"),
		DetectionTimeout:    p.duration("DETECTION_TIMEOUT", 30*time.Second),
		BodyLimitMB:         p.int("BODY_LIMIT_MB", defaultBodyLimitMB),
		S3:                  loadS3(),
	}
	if err := p.err(); err != nil {
		return nil, err
	}

	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid frontend config: %w", err)
	}

	return cfg, nil
}

func loadS3() *S3 {
	bucket := os.Getenv("ARTIFACT_S3_BUCKET")
	if bucket == "" {
		return nil
	}
	return &S3{
		Bucket:          bucket,
		Region:          os.Getenv("AWS_REGION"),
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		Prefix:          os.Getenv("ARTIFACT_S3_PREFIX"),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// envParser collects every malformed variable instead of stopping at the
// first one.
type envParser struct {
	errs []error
}

func (p *envParser) fail(key, raw string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, raw, err))
}

func (p *envParser) err() error {
	return errors.Join(p.errs...)
}

func (p *envParser) int(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *envParser) float(key string, fallback float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

func (p *envParser) bool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return v
}

// duration accepts Go durations ("45s") or plain seconds ("45").
func (p *envParser) duration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
		return fallback
	}
	return time.Duration(secs * float64(time.Second))
}

func (p *envParser) floats(key string, fallback []float64) []float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return append([]float64(nil), fallback...)
	}

	parts := strings.Split(raw, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			p.fail(key, raw, err)
			return fallback
		}
		out = append(out, v)
	}
	return out
}
