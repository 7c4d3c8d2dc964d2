package violationHandler

import (
	"SentinelAI/internal/api/violation"
	"SentinelAI/internal/entity"
	contextPkg "SentinelAI/pkg/context"
	"SentinelAI/pkg/handlerUtil"
	"SentinelAI/pkg/log"
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

func (h *ViolationHandler) ListViolations(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var query violation.ListQuery
	if err := ctx.QueryParser(&query); err != nil {
		return errHandler.Handle(ctx, requestID, fmt.Errorf("%w: %v", violation.ErrInvalidStatus, err), ctx.Path(), "parse_query")
	}

	if err := h.validator.Struct(query); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	var (
		records []entity.ViolationRecord
		err     error
	)
	if query.Status == "" {
		records, err = h.violationService.List(c)
	} else {
		records, err = h.violationService.ListByStatus(c, entity.ViolationStatus(query.Status))
	}
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_violations")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"status":     query.Status,
		"count":      len(records),
	}).Debug("Violations listed")

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, violation.ListResponse{
		Violations: records,
		Total:      len(records),
	})
}

func (h *ViolationHandler) GetStats(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	stats, err := h.violationService.Stats(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_stats")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, stats)
}

func (h *ViolationHandler) RecordEntry(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req violation.EntryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, fiber.NewError(fiber.StatusBadRequest, err.Error()), ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.violationService.RecordEntry(c, *req.HasMask); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "record_entry")
	}

	stats, err := h.violationService.Stats(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_stats")
	}

	h.log.WithFields(log.Fields{
		"request_id":      requestID,
		"has_mask":        *req.HasMask,
		"compliance_rate": stats.ComplianceRate,
	}).Info("Entry recorded")

	return errHandler.HandleSuccess(ctx, fiber.StatusCreated, stats)
}
