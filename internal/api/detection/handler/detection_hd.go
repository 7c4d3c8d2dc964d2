package detectionHandler

import (
	"SentinelAI/internal/api/detection"
	"SentinelAI/internal/entity"
	contextPkg "SentinelAI/pkg/context"
	"SentinelAI/pkg/handlerUtil"
	"SentinelAI/pkg/log"
	"context"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
)

func (h *DetectionHandler) GetStatus(ctx *fiber.Ctx) error {
	errHandler := handlerUtil.New(h.log)

	if h.hub == nil {
		return errHandler.Handle(ctx, h.middleware.GetRequestID(ctx), detection.ErrFeedUnavailable, ctx.Path(), "get_status")
	}

	snap := h.hub.Snapshot()

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.StatusResponse{
		Status:     snap.Status,
		Result:     snap.Result,
		FrameReady: h.source != nil && h.source.Ready(),
	})
}

// Analyze classifies one uploaded image without touching the live status.
func (h *DetectionHandler) Analyze(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing analyze request")

	var img *image.RGBA

	file, err := ctx.FormFile("image")
	if err == nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"file_name":  file.Filename,
			"file_size":  file.Size,
		}).Debug("Processing file upload")

		if err := h.utils.ValidateImageFile(file); err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "validate_image_file")
		}

		fileContent, err := file.Open()
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "open_file")
		}
		defer fileContent.Close()

		data, err := io.ReadAll(fileContent)
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_file")
		}

		img, err = h.utils.DecodeImage(data)
		if err != nil {
			return errHandler.Handle(ctx, requestID, fmt.Errorf("%w: %v", detection.ErrInvalidImage, err), ctx.Path(), "decode_image")
		}
	} else {
		var req detection.AnalyzeRequest
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.Handle(ctx, requestID, fmt.Errorf("%w: %v", detection.ErrBadRequest, err), ctx.Path(), "parse_request_body")
		}

		if err := h.validator.Struct(req); err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
		}

		img, err = h.utils.DecodeBase64Image(req.ImageBase64)
		if err != nil {
			return errHandler.Handle(ctx, requestID, fmt.Errorf("%w: %v", detection.ErrInvalidImage, err), ctx.Path(), "decode_image")
		}
	}

	frame := entity.Frame{CapturedAt: time.Now(), Image: img}

	status, result, err := h.detectionService.Analyze(c, frame)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "analyze")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"status":     status,
			"faces":      len(result.Faces),
		}).Info("Image analyzed")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.AnalyzeResponse{
			Status: status,
			Result: result,
			Width:  frame.Width(),
			Height: frame.Height(),
		})
	}
}

func (h *DetectionHandler) GetSettings(ctx *fiber.Ctx) error {
	errHandler := handlerUtil.New(h.log)

	if h.audio == nil {
		return errHandler.Handle(ctx, h.middleware.GetRequestID(ctx), detection.ErrFeedUnavailable, ctx.Path(), "get_settings")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.SettingsResponse{
		AudioEnabled: h.audio.AudioEnabled(),
	})
}

func (h *DetectionHandler) UpdateSettings(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	if h.audio == nil {
		return errHandler.Handle(ctx, requestID, detection.ErrFeedUnavailable, ctx.Path(), "update_settings")
	}

	var req detection.SettingsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, fmt.Errorf("%w: %v", detection.ErrBadRequest, err), ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	h.audio.SetAudioEnabled(*req.AudioEnabled)

	h.log.WithFields(log.Fields{
		"request_id":    requestID,
		"audio_enabled": *req.AudioEnabled,
	}).Info("Detection settings updated")

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.SettingsResponse{
		AudioEnabled: h.audio.AudioEnabled(),
	})
}
