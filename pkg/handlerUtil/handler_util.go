package handlerUtil

import (
	"TailorScan/internal/api/scan"
	"TailorScan/pkg/log"
	"TailorScan/pkg/response"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	// Scan domain errors. These run before the generic response.Error
	// branch so each one keeps its own message and code.
	if errors.Is(err, scan.ErrLinkNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Scan link not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Scan link not found",
			"code":    "LINK_NOT_FOUND",
		})
	}

	if errors.Is(err, scan.ErrLinkExpired) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Scan link expired")
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"message": "This scan link has expired. Ask your designer for a new one.",
			"code":    "LINK_EXPIRED",
		})
	}

	if errors.Is(err, scan.ErrSessionNotWritable) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Scan session already finished")
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "This scan link was already used",
			"code":    "SESSION_ALREADY_FINISHED",
		})
	}

	if errors.Is(err, scan.ErrSessionNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Scan session not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Scan session not found",
			"code":    "SESSION_NOT_FOUND",
		})
	}

	if errors.Is(err, scan.ErrSessionNotOwned) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Scan session not owned by designer")
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Scan session does not belong to you",
			"code":    "SESSION_NOT_OWNED",
		})
	}

	if errors.Is(err, scan.ErrClientIdentityRequired) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Client identity missing")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Client id, name and gender are required unless quick scan is set",
			"code":    "CLIENT_IDENTITY_REQUIRED",
		})
	}

	if errors.Is(err, scan.ErrGuestIdentityRequired) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Guest identity missing")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Guest name and gender are required for a quick scan",
			"code":    "GUEST_IDENTITY_REQUIRED",
		})
	}

	if errors.Is(err, scan.ErrMeasurementsRequired) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("No measurements submitted")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "At least one measurement is required",
			"code":    "MEASUREMENTS_REQUIRED",
		})
	}

	if errors.Is(err, scan.ErrUnknownMeasurement) || errors.Is(err, scan.ErrMeasurementOutOfRange) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Invalid measurement payload")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
			"code":    "INVALID_MEASUREMENT",
		})
	}

	if errors.Is(err, scan.ErrManualEntryTooSparse) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Manual entry too sparse")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Manual entry requires at least three measurements",
			"code":    "MANUAL_ENTRY_TOO_SPARSE",
		})
	}

	if errors.Is(err, scan.ErrInvalidProvenance) || errors.Is(err, scan.ErrInvalidGender) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Invalid submission field")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
			"code":    "INVALID_SUBMISSION",
		})
	}

	if errors.Is(err, scan.ErrInvalidStatusFilter) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Invalid status filter")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid status filter",
			"code":    "INVALID_STATUS_FILTER",
		})
	}

	if errors.Is(err, scan.ErrInvalidDelivery) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Invalid delivery channel or target")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid delivery channel or target",
			"code":    "INVALID_DELIVERY",
		})
	}

	if errors.Is(err, scan.ErrCreateSession) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Error("Failed to create scan session")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to create scan session",
			"code":    "CREATE_SESSION_FAILED",
		})
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"code":       respErr.Code,
			"path":       path,
			"operation":  operation,
		}).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(fiber.Map{"error": err.Error()})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Operation failed with fiber error")
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	traceID := log.ErrorWithTraceID(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}, "Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":    "An unexpected error occurred",
		"trace_id": traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Validation failed: " + err.Error(),
		"code":  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(utils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Unauthorized access")

	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": message,
		"code":  "UNAUTHORIZED",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
