package main

import (
	"DetectionRelay/internal/config"
	"DetectionRelay/pkg/inference"
	"DetectionRelay/pkg/log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	envErr := godotenv.Load()
	logger := log.NewLogger("detection")
	if envErr != nil {
		logger.Warnf("No .env file loaded: %v", envErr)
	}

	validator := config.NewValidator()
	cfg, err := config.LoadDetection(validator)
	if err != nil {
		logger.Fatalf("Error loading config: %v", err)
	}

	adapter, err := inference.NewONNX(inference.Options{
		ModelPath:       cfg.ModelPath,
		ModelName:       cfg.ModelName,
		LibraryPath:     cfg.OnnxRuntimeLib,
		InputSize:       cfg.InputSize,
		NmsIouThreshold: float32(cfg.NmsIouThreshold),
		PoolSize:        cfg.PoolSize,
		UseCUDA:         cfg.UseCUDA,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatalf("Error loading model: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"model":  filepath.Base(cfg.ModelPath),
		"device": adapter.Device(),
		"pool":   cfg.PoolSize,
	}).Info("Model loaded")

	store, err := config.NewArtifactStore(logger, cfg.UploadDir, cfg.ResultDir, cfg.S3)
	if err != nil {
		logger.Fatalf("Error creating artifact store: %v", err)
	}

	server, err := config.NewServer(
		config.WithFiber(config.NewFiber(logger, "Detection Service", cfg.BodyLimitMB)),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithUtils(int64(cfg.BodyLimitMB)*1024*1024),
		config.WithMiddleware(),
		config.WithInferenceAdapter(adapter),
		config.WithRenderer(),
		config.WithArtifactStore(store),
		config.WithThresholds(cfg.Thresholds),
	)
	if err != nil {
		logger.Fatal(err)
	}

	if err := server.RegisterDetectionHandler(); err != nil {
		logger.Fatal(err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(cfg.Port); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.WithField("thresholds", cfg.Thresholds).Info("Detection service started")

	<-sigChan
	logger.Info("Shutting down server...")
	if err := server.Shutdown(); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
