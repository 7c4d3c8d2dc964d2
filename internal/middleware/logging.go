package middleware

import (
	"SentinelAI/pkg/log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Larger bodies such as uploads are not logged.
const maxLoggedBody = 2048

func (m *middleware) NewLoggingMiddleware(c *fiber.Ctx) error {
	start := time.Now()

	err := c.Next()

	latency := time.Since(start)
	status := c.Response().StatusCode()
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}

	logFields := log.Fields{
		"request_id":    m.GetRequestID(c),
		"method":        c.Method(),
		"path":          c.Path(),
		"status":        status,
		"latency_ms":    latency.Milliseconds(),
		"ip":            c.IP(),
		"user_agent":    c.Get("User-Agent"),
		"response_size": len(c.Response().Body()),
	}

	if body := c.Request().Body(); len(body) > 0 && len(body) <= maxLoggedBody &&
		strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEApplicationJSON) {
		logFields["request_body"] = sanitizeRequestBody(body)
	}

	entry := m.log.WithFields(logFields)
	switch {
	case status >= 500:
		entry.Error("Server error")
	case status >= 400:
		entry.Warn("Client error")
	default:
		entry.Info("Success")
	}

	return err
}

func sanitizeRequestBody(body []byte) string {
	var jsonBody map[string]interface{}
	if err := json.Unmarshal(body, &jsonBody); err != nil {
		return "[non-JSON body]"
	}

	for _, field := range []string{"password", "token", "secret", "key", "authorization", "image_base64"} {
		if _, exists := jsonBody[field]; exists {
			jsonBody[field] = "[REDACTED]"
		}
	}

	sanitized, err := json.Marshal(jsonBody)
	if err != nil {
		return "[sanitization-failed]"
	}

	return string(sanitized)
}
