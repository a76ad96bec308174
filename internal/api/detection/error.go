package detection

import (
	"DetectionRelay/pkg/response"
	"net/http"
)

var (
	ErrNoFile           = response.NewError(http.StatusBadRequest, "no file uploaded")
	ErrInvalidImage     = response.NewError(http.StatusBadRequest, "invalid image")
	ErrInferenceFailure = response.NewError(http.StatusInternalServerError, "inference failed")
	ErrFileTooLarge     = response.NewError(http.StatusRequestEntityTooLarge, "file too large")
	ErrNotFound         = response.NewError(http.StatusNotFound, "File not found")
)
