package main

import (
	"DetectionRelay/internal/config"
	"DetectionRelay/pkg/detectionclient"
	"DetectionRelay/pkg/log"
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()
	logger := log.NewLogger("frontend")
	if envErr != nil {
		logger.Warnf("No .env file loaded: %v", envErr)
	}

	validator := config.NewValidator()
	cfg, err := config.LoadFrontend(validator)
	if err != nil {
		logger.Fatalf("Error loading config: %v", err)
	}

	store, err := config.NewArtifactStore(
		logger,
		filepath.Join(cfg.StaticDir, "uploads"),
		filepath.Join(cfg.StaticDir, "results"),
		cfg.S3,
	)
	if err != nil {
		logger.Fatalf("Error creating artifact store: %v", err)
	}

	client := detectionclient.New(cfg.DetectionServiceURL, cfg.DetectionTimeout, validator)

	probeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := client.Health(probeCtx); err != nil {
		logger.WithField("url", cfg.DetectionServiceURL).Warnf("Detection service not reachable yet: %v", err)
	}
	cancel()

	server, err := config.NewServer(
		config.WithFiber(config.NewFiber(logger, "Frontend", cfg.BodyLimitMB)),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithUtils(int64(cfg.BodyLimitMB)*1024*1024),
		config.WithMiddleware(),
		config.WithArtifactStore(store),
		config.WithDetectionClient(client),
		config.WithStaticDir(cfg.StaticDir),
	)
	if err != nil {
		logger.Fatal(err)
	}

	if err := server.RegisterRelayHandler(); err != nil {
		logger.Fatal(err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(cfg.Port); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.WithField("detection_service", cfg.DetectionServiceURL).Info("Frontend started")

	<-sigChan
	logger.Info("Shutting down server...")
	if err := server.Shutdown(); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
