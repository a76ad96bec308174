package relayHandler

import (
	"DetectionRelay/internal/api/relay"
	contextPkg "DetectionRelay/pkg/context"
	"DetectionRelay/pkg/handlerUtil"
	"DetectionRelay/pkg/log"
	"DetectionRelay/pkg/utils"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

func (h *RelayHandler) Detect(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c := contextPkg.FromFiberCtx(ctx)

	errHandler := handlerUtil.New(h.log)

	file, err := ctx.FormFile("file")
	if err != nil {
		return errHandler.Handle(ctx, requestID, fmt.Errorf("%w: %v", relay.ErrNoFile, err), ctx.Path(), "read_form_file")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"file_name":  file.Filename,
		"file_size":  file.Size,
	}).Debug("Relaying upload to detection service")

	content, err := h.utils.ReadFormFile(file)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrFileTooLarge):
			err = relay.ErrFileTooLarge
		case errors.Is(err, utils.ErrNoFile), errors.Is(err, utils.ErrEmptyFile):
			err = fmt.Errorf("%w: %v", relay.ErrNoFile, err)
		}
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_upload")
	}

	upload := relay.Upload{
		Filename: file.Filename,
		Content:  content,
	}
	if err := h.validator.Struct(upload); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	resp, err := h.relayService.HandleClientUpload(c, upload)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "relay_detection")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, resp)
}

func (h *RelayHandler) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(h.relayService.Health())
}
