package config

import (
	detectionHandler "DetectionRelay/internal/api/detection/handler"
	detectionService "DetectionRelay/internal/api/detection/service"
	"DetectionRelay/internal/api/relay"
	relayHandler "DetectionRelay/internal/api/relay/handler"
	relayService "DetectionRelay/internal/api/relay/service"
	"DetectionRelay/internal/middleware"
	"DetectionRelay/pkg/artifact"
	"DetectionRelay/pkg/detectionclient"
	"DetectionRelay/pkg/inference"
	"DetectionRelay/pkg/render"
	"DetectionRelay/pkg/utils"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

type ServerOption func(*Server) error

type Server struct {
	engine          *fiber.App
	log             *logrus.Logger
	middleware      middleware.Middleware
	validator       *validator.Validate
	utils           utils.IUtils
	handlers        []handler
	adapter         inference.Adapter
	renderer        *render.Renderer
	store           *artifact.Store
	thresholds      []float64
	detectionClient detectionclient.Client
	staticDir       string
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.New(0)
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log, server.utils)
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithUtils(maxUploadBytes int64) ServerOption {
	return func(s *Server) error {
		s.utils = utils.New(maxUploadBytes)
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		if s.utils == nil {
			s.utils = utils.New(0)
		}
		s.middleware = middleware.New(s.log, s.utils)
		return nil
	}
}

func WithInferenceAdapter(adapter inference.Adapter) ServerOption {
	return func(s *Server) error {
		if adapter == nil {
			return fmt.Errorf("inference adapter is nil")
		}
		s.adapter = adapter
		return nil
	}
}

func WithRenderer() ServerOption {
	return func(s *Server) error {
		renderer, err := render.New()
		if err != nil {
			return fmt.Errorf("failed to create renderer: %w", err)
		}
		s.renderer = renderer
		return nil
	}
}

func WithArtifactStore(store *artifact.Store) ServerOption {
	return func(s *Server) error {
		s.store = store
		return nil
	}
}

func WithThresholds(thresholds []float64) ServerOption {
	return func(s *Server) error {
		s.thresholds = thresholds
		return nil
	}
}

func WithDetectionClient(client detectionclient.Client) ServerOption {
	return func(s *Server) error {
		s.detectionClient = client
		return nil
	}
}

func WithStaticDir(dir string) ServerOption {
	return func(s *Server) error {
		s.staticDir = dir
		return nil
	}
}

func (s *Server) RegisterDetectionHandler() error {
	if s.adapter == nil || s.renderer == nil || s.store == nil {
		return errors.New("detection handler needs an inference adapter, renderer and artifact store")
	}

	thresholds := s.thresholds
	if len(thresholds) == 0 {
		thresholds = detectionService.DefaultThresholds
	}
	cascade, err := detectionService.NewCascade(s.log, s.adapter, thresholds)
	if err != nil {
		return err
	}

	detectionServices := detectionService.NewDetectionService(s.log, cascade, s.renderer, s.store)
	detectionHandlers := detectionHandler.New(s.log, s.validator, s.middleware, detectionServices, s.utils)

	s.handlers = append(s.handlers, detectionHandlers)
	return nil
}

func (s *Server) RegisterRelayHandler() error {
	if s.detectionClient == nil || s.store == nil {
		return errors.New("relay handler needs a detection client and artifact store")
	}

	relayServices := relayService.NewRelayService(s.log, s.detectionClient, s.store)
	relayHandlers := relayHandler.New(s.log, s.validator, s.middleware, relayServices, s.utils)

	s.handlers = append(s.handlers, relayHandlers)
	return nil
}

// Mount attaches middleware, handlers and static files to the engine. Run
// calls it; tests can call it directly and use engine.Test.
func (s *Server) Mount() *fiber.App {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	for _, h := range s.handlers {
		h.Start(s.engine)
	}

	if s.staticDir != "" {
		s.setupStatic()
	}

	return s.engine
}

func (s *Server) Run(port string) error {
	s.Mount()

	s.log.WithField("port", port).Info("Server listening")
	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) Shutdown() error {
	err := s.engine.ShutdownWithTimeout(shutdownTimeout)
	if s.adapter != nil {
		err = errors.Join(err, s.adapter.Close())
	}
	return err
}

func (s *Server) setupStatic() {
	s.engine.Static(relay.StaticPrefix, s.staticDir)

	index := filepath.Join(s.staticDir, "index.html")
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		if _, err := os.Stat(index); err != nil {
			return ctx.JSON(fiber.Map{
				"message": "Server is Healthy!",
			})
		}
		return ctx.SendFile(index)
	})
}
