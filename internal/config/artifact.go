package config

import (
	"DetectionRelay/pkg/artifact"
	"DetectionRelay/pkg/s3"
	"fmt"

	"github.com/sirupsen/logrus"
)

// NewArtifactStore mirrors artifacts to S3 when a bucket is configured.
func NewArtifactStore(logger *logrus.Logger, uploadDir, resultDir string, s3Cfg *S3) (*artifact.Store, error) {
	var options []artifact.Option

	if s3Cfg != nil {
		client, err := s3.New(s3.Config{
			Bucket:          s3Cfg.Bucket,
			Region:          s3Cfg.Region,
			AccessKeyID:     s3Cfg.AccessKeyID,
			SecretAccessKey: s3Cfg.SecretAccessKey,
			Prefix:          s3Cfg.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		options = append(options, artifact.WithMirror(client))
		logger.WithField("bucket", s3Cfg.Bucket).Info("Mirroring artifacts to S3")
	}

	return artifact.New(logger, uploadDir, resultDir, options...)
}
