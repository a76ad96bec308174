package detectionHandler

import (
	"DetectionRelay/internal/api/detection"
	contextPkg "DetectionRelay/pkg/context"
	"DetectionRelay/pkg/handlerUtil"
	"DetectionRelay/pkg/log"
	"DetectionRelay/pkg/utils"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

// Bounds the wait for a free model session, not the inference itself.
const detectTimeout = 2 * time.Minute

func (h *DetectionHandler) Detect(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), detectTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	file, err := ctx.FormFile("file")
	if err != nil {
		return errHandler.Handle(ctx, requestID, fmt.Errorf("%w: %v", detection.ErrNoFile, err), ctx.Path(), "read_form_file")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"file_name":  file.Filename,
		"file_size":  file.Size,
	}).Debug("Processing detection request")

	content, err := h.utils.ReadFormFile(file)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrFileTooLarge):
			err = detection.ErrFileTooLarge
		case errors.Is(err, utils.ErrNoFile), errors.Is(err, utils.ErrEmptyFile):
			err = fmt.Errorf("%w: %v", detection.ErrNoFile, err)
		}
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_upload")
	}

	upload := detection.Upload{
		Filename: file.Filename,
		Content:  content,
	}
	if err := h.validator.Struct(upload); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	resp, err := h.detectionService.Detect(c, upload)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "detect")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, resp)
}

func (h *DetectionHandler) GetResult(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	name := ctx.Params("filename")
	data, err := h.detectionService.LoadResult(contextPkg.FromFiberCtx(ctx), name)
	if err != nil {
		if errors.Is(err, detection.ErrNotFound) {
			return errHandler.HandleNotFound(ctx, requestID, detection.ErrNotFound, ctx.Path())
		}
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "load_result")
	}

	if ext := filepath.Ext(name); ext != "" {
		ctx.Type(ext)
	}
	return ctx.Status(fiber.StatusOK).Send(data)
}

func (h *DetectionHandler) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(h.detectionService.Health())
}
