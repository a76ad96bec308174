package relayHandler

import (
	relayService "DetectionRelay/internal/api/relay/service"
	"DetectionRelay/internal/middleware"
	"DetectionRelay/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type RelayHandler struct {
	log          *logrus.Logger
	validator    *validator.Validate
	middleware   middleware.Middleware
	relayService relayService.IRelayService
	utils        utils.IUtils
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	rs relayService.IRelayService,
	utils utils.IUtils,
) *RelayHandler {
	return &RelayHandler{
		relayService: rs,
		log:          log,
		validator:    validator,
		middleware:   middleware,
		utils:        utils,
	}
}

func (h *RelayHandler) Start(srv fiber.Router) {
	srv.Post("/detect", h.Detect)
	srv.Get("/health", h.Health)
}
