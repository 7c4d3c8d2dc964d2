package violation

import (
	"SentinelAI/pkg/response"
	"net/http"
)

var (
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
	ErrInvalidStatus       = response.NewError(http.StatusBadRequest, "status must be PENDING or REVIEWED")
	ErrEmptySnapshot       = response.NewError(http.StatusBadRequest, "snapshot image is empty")
)
