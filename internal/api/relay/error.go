package relay

import (
	"DetectionRelay/pkg/response"
	"net/http"
)

var (
	ErrNoFile          = response.NewError(http.StatusBadRequest, "no file uploaded")
	ErrFileTooLarge    = response.NewError(http.StatusRequestEntityTooLarge, "file too large")
	ErrRemoteService   = response.NewError(http.StatusInternalServerError, "detection service error")
	ErrRelayIncomplete = response.NewError(http.StatusInternalServerError, "failed to fetch result image")
)
