package detection

import (
	"SentinelAI/pkg/response"
	"net/http"
)

var (
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
	ErrBadRequest          = response.NewError(http.StatusBadRequest, "bad request")
	ErrInvalidImage        = response.NewError(http.StatusBadRequest, "image could not be decoded")
	ErrDetectorUnavailable = response.NewError(http.StatusBadGateway, "face detector unavailable")
	ErrFeedUnavailable     = response.NewError(http.StatusServiceUnavailable, "camera feed is not configured")
	ErrFrameNotReady       = response.NewError(http.StatusServiceUnavailable, "no camera frame available")
)
