// Package context carries the request id from the fiber layer into service
// and repository calls, so every log line of one scan request shares an id.
package context

import (
	"context"
	"github.com/gofiber/fiber/v2"
)

const RequestIDKey = "request_id"

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(RequestIDKey).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

// FromFiberCtx detaches the request id from the fiber request so it survives
// into goroutines and timeouts that outlive the handler.
func FromFiberCtx(c *fiber.Ctx) context.Context {
	if requestID, ok := c.Locals("X-Request-ID").(string); ok && requestID != "" {
		return WithRequestID(context.Background(), requestID)
	}

	requestID := c.Get("X-Request-ID")
	if requestID == "" {
		requestID = "unknown"
	}

	return WithRequestID(context.Background(), requestID)
}
