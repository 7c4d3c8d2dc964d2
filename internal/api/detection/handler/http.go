package detectionHandler

import (
	detectionService "SentinelAI/internal/api/detection/service"
	"SentinelAI/internal/feed"
	"SentinelAI/internal/middleware"
	"SentinelAI/pkg/utils"
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// AudioSettings is the runtime audio toggle owned by the alert dispatcher.
type AudioSettings interface {
	SetAudioEnabled(enabled bool)
	AudioEnabled() bool
}

type DetectionHandler struct {
	appCtx           context.Context
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService
	utils            utils.IUtils
	hub              *feed.Hub
	scheduler        *feed.Scheduler
	source           *feed.LatestFrameSource
	audio            AudioSettings
}

func New(
	appCtx context.Context,
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
	utils utils.IUtils,
	scheduler *feed.Scheduler,
	source *feed.LatestFrameSource,
	audio AudioSettings,
) *DetectionHandler {
	h := &DetectionHandler{
		appCtx:           appCtx,
		detectionService: ds,
		log:              log,
		validator:        validator,
		middleware:       middleware,
		utils:            utils,
		scheduler:        scheduler,
		source:           source,
		audio:            audio,
	}
	if scheduler != nil {
		h.hub = scheduler.Hub()
	}
	return h
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	detectionGroup := srv.Group("/detection")
	detectionGroup.Get("/status", h.GetStatus)
	detectionGroup.Post("/analyze", h.middleware.NewRateLimiter, h.Analyze)
	detectionGroup.Get("/settings", h.GetSettings)
	detectionGroup.Patch("/settings", h.middleware.NewRateLimiter, h.UpdateSettings)
	detectionGroup.Use("/ws", wsMiddleware)
	detectionGroup.Get("/ws", websocket.New(h.handleStatusWebSocket))

	feedGroup := srv.Group("/feed")
	feedGroup.Get("/state", h.GetFeedState)
	feedGroup.Post("/start", h.middleware.NewRateLimiter, h.StartFeed)
	feedGroup.Post("/stop", h.middleware.NewRateLimiter, h.StopFeed)
	feedGroup.Use("/ws", wsMiddleware)
	feedGroup.Get("/ws", websocket.New(h.handleFeedWebSocket))
}
