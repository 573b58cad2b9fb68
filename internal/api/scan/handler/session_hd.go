package scanHandler

import (
	"TailorScan/internal/api/scan"
	contextPkg "TailorScan/pkg/context"
	"TailorScan/pkg/handlerUtil"
	jwt "TailorScan/pkg/jwt"
	"TailorScan/pkg/log"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *ScanHandler) CreateSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing session creation request")

	designer, err := jwt.GetDesignerClaims(ctx)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_designer_claims")
	}

	var req scan.CreateSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	res, err := h.scanService.Session().CreateSession(c, designer, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "create_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"session_id": res.ID,
		}).Info("Scan session created")
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, res)
	}
}

func (h *ScanHandler) ListSessions(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing session list request")

	designer, err := jwt.GetDesignerClaims(ctx)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_designer_claims")
	}

	filter := scan.ListSessionsFilter{
		ClientID:   ctx.Query("client_id"),
		GuestPhone: ctx.Query("guest_phone"),
		Status:     ctx.Query("status"),
	}

	res, err := h.scanService.Session().ListSessions(c, designer, filter)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_sessions")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *ScanHandler) GetSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing session detail request")

	designer, err := jwt.GetDesignerClaims(ctx)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_designer_claims")
	}

	res, err := h.scanService.Session().GetSession(c, designer, ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *ScanHandler) RunRetention(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 60*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing retention run request")

	if _, err := jwt.GetDesignerClaims(ctx); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_designer_claims")
	}

	res, err := h.scanService.Retention().Run(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "run_retention")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"archived":   res.Archived,
			"purged":     res.Purged,
		}).Info("Retention run completed")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}
