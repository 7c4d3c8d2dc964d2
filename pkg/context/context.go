package context

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

type ctxKey string

const RequestIDKey ctxKey = "request_id"

// fiberRequestIDKey is the Locals key set by the request ID middleware.
const fiberRequestIDKey = "X-Request-ID"

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	requestID, ok := ctx.Value(RequestIDKey).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

// FromFiberCtx derives a request-scoped context carrying the request ID.
// The fasthttp context is recycled after the handler returns, so the result
// is rooted at UserContext rather than the fiber.Ctx itself.
func FromFiberCtx(c *fiber.Ctx) context.Context {
	requestID, ok := c.Locals(fiberRequestIDKey).(string)
	if !ok || requestID == "" {
		requestID = c.Get(fiberRequestIDKey)
		if requestID == "" {
			requestID = "unknown"
		}
	}

	return WithRequestID(c.UserContext(), requestID)
}
