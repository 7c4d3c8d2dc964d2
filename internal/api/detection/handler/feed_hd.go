package detectionHandler

import (
	"SentinelAI/internal/api/detection"
	"SentinelAI/pkg/handlerUtil"
	"SentinelAI/pkg/log"

	"github.com/gofiber/fiber/v2"
)

func (h *DetectionHandler) GetFeedState(ctx *fiber.Ctx) error {
	errHandler := handlerUtil.New(h.log)

	if h.scheduler == nil {
		return errHandler.Handle(ctx, h.middleware.GetRequestID(ctx), detection.ErrFeedUnavailable, ctx.Path(), "get_feed_state")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.FeedStateResponse{
		Running: h.scheduler.Running(),
	})
}

func (h *DetectionHandler) StartFeed(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	if h.scheduler == nil {
		return errHandler.Handle(ctx, requestID, detection.ErrFeedUnavailable, ctx.Path(), "start_feed")
	}

	// The loop outlives the request, so it runs on the application context.
	h.scheduler.Start(h.appCtx)

	h.log.WithField("request_id", requestID).Info("Feed enabled")

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.FeedStateResponse{
		Running: h.scheduler.Running(),
	})
}

func (h *DetectionHandler) StopFeed(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	if h.scheduler == nil {
		return errHandler.Handle(ctx, requestID, detection.ErrFeedUnavailable, ctx.Path(), "stop_feed")
	}

	h.scheduler.Stop()

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"status":     h.hub.Status(),
	}).Info("Feed disabled")

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.FeedStateResponse{
		Running: h.scheduler.Running(),
	})
}
