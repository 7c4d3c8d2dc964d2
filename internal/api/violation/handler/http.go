package violationHandler

import (
	violationService "SentinelAI/internal/api/violation/service"
	"SentinelAI/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ViolationHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	violationService violationService.IViolationService
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	vs violationService.IViolationService,
) *ViolationHandler {
	return &ViolationHandler{
		log:              log,
		validator:        validator,
		middleware:       middleware,
		violationService: vs,
	}
}

func (h *ViolationHandler) Start(srv fiber.Router) {
	srv.Get("/violations", h.ListViolations)

	violations := srv.Group("/violations")
	violations.Get("/stats", h.GetStats)
	violations.Post("/entries", h.middleware.NewRateLimiter, h.RecordEntry)
}
