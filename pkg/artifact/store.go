package artifact

import (
	"DetectionRelay/internal/entity"
	"DetectionRelay/pkg/log"
	"DetectionRelay/pkg/render"
	"DetectionRelay/pkg/response"
	"DetectionRelay/pkg/s3"
	"context"
	"errors"
	"fmt"
	"image"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var ErrNotFound = response.NewError(http.StatusNotFound, "File not found")

const (
	uploadPrefix = "uploads/"
	resultPrefix = "results/"
)

// Mirror is a secondary copy of every artifact, such as an S3 bucket. Get
// reports a missing key as s3.ErrObjectNotFound.
type Mirror interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

type Store struct {
	uploadDir string
	resultDir string
	mirror    Mirror
	log       *logrus.Logger
}

type Option func(*Store)

func WithMirror(m Mirror) Option {
	return func(s *Store) {
		s.mirror = m
	}
}

func New(log *logrus.Logger, uploadDir, resultDir string, options ...Option) (*Store, error) {
	for _, dir := range []string{uploadDir, resultDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
		}
	}

	s := &Store{
		uploadDir: uploadDir,
		resultDir: resultDir,
		log:       log,
	}
	for _, option := range options {
		option(s)
	}
	return s, nil
}

func (s *Store) SaveUpload(ctx context.Context, id Identity, data []byte) (string, error) {
	return s.write(ctx, s.uploadDir, uploadPrefix, id.ImageName(), data)
}

func (s *Store) SaveResultImage(ctx context.Context, id Identity, img image.Image) (string, error) {
	data, err := render.EncodeBytes(img, id.ImageName())
	if err != nil {
		return "", fmt.Errorf("failed to encode result image: %w", err)
	}
	return s.SaveResultBytes(ctx, id, data)
}

func (s *Store) SaveResultBytes(ctx context.Context, id Identity, data []byte) (string, error) {
	return s.write(ctx, s.resultDir, resultPrefix, id.ImageName(), data)
}

// SaveResultJSON writes the detection list as an indented JSON array.
func (s *Store) SaveResultJSON(ctx context.Context, id Identity, detections []entity.Detection) (string, error) {
	if detections == nil {
		detections = []entity.Detection{}
	}
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(detections, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal detections: %w", err)
	}
	return s.write(ctx, s.resultDir, resultPrefix, id.JSONName(), data)
}

// Load reads a result artifact by bare filename, falling back to the mirror
// when the local copy is missing.
func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	if !validName(name) {
		return nil, ErrNotFound
	}

	data, err := os.ReadFile(filepath.Join(s.resultDir, name))
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read artifact %s: %w", name, err)
	}

	if s.mirror == nil {
		return nil, ErrNotFound
	}

	data, err = s.mirror.Get(ctx, resultPrefix+name)
	if errors.Is(err, s3.ErrObjectNotFound) {
		s.logger().WithField("name", name).Debug("Artifact missing from mirror")
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s from mirror: %w", name, err)
	}
	return data, nil
}

func (s *Store) write(ctx context.Context, dir, prefix, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", name, err)
	}

	if s.mirror != nil {
		contentType := mime.TypeByExtension(filepath.Ext(name))
		if err := s.mirror.Put(ctx, prefix+name, data, contentType); err != nil {
			s.logger().WithFields(log.Fields{
				"key":   prefix + name,
				"error": err.Error(),
			}).Warn("Failed to mirror artifact")
		}
	}

	return path, nil
}

func (s *Store) logger() *logrus.Logger {
	if s.log == nil {
		return logrus.StandardLogger()
	}
	return s.log
}
