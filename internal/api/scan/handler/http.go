package scanHandler

import (
	scanService "TailorScan/internal/api/scan/service"
	"TailorScan/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type ScanHandler struct {
	log         *logrus.Logger
	validator   *validator.Validate
	middleware  middleware.Middleware
	scanService scanService.ScanService
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ss scanService.ScanService,
) *ScanHandler {
	return &ScanHandler{
		scanService: ss,
		log:         log,
		validator:   validator,
		middleware:  middleware,
	}
}

func (h *ScanHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	// Subject surface, addressed by link code only.
	subject := srv.Group("/scan")
	subject.Use(h.middleware.NewScanRateLimiter)
	subject.Get("/:linkCode", h.GetSessionInfo)
	subject.Post("/:linkCode/start", h.StartScan)
	subject.Post("/:linkCode/fail", h.FailScan)
	subject.Post("/:linkCode", h.SubmitMeasurements)

	// Designer dashboard surface. The watch stream skips the token check
	// and only ever emits status words.
	srv.Post("/sessions", h.middleware.NewTokenMiddleware, h.CreateSession)
	srv.Get("/sessions", h.middleware.NewTokenMiddleware, h.ListSessions)

	sessions := srv.Group("/sessions")
	sessions.Get("/:id/ws", wsMiddleware, websocket.New(h.WatchSession))
	sessions.Post("/retention/run", h.middleware.NewTokenMiddleware, h.RunRetention)
	sessions.Get("/:id", h.middleware.NewTokenMiddleware, h.GetSession)
}
