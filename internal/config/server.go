package config

import (
	"TailorScan/database/postgres"
	scanHandler "TailorScan/internal/api/scan/handler"
	scanRepository "TailorScan/internal/api/scan/repository"
	scanService "TailorScan/internal/api/scan/service"
	"TailorScan/internal/middleware"
	"TailorScan/pkg/rabbitmq"
	"TailorScan/pkg/redis"
	"TailorScan/pkg/s3"
	"TailorScan/pkg/smtp"
	"TailorScan/pkg/utils"
	"TailorScan/pkg/whatsapp"
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine         *fiber.App
	db             *sqlx.DB
	log            *logrus.Logger
	middleware     middleware.Middleware
	validator      *validator.Validate
	utils          utils.IUtils
	handlers       []handler
	redisServer    redis.IRedis
	smtpMailer     smtp.ItfSmtp
	whatsappClient whatsapp.IWhatsappSender
	s3Client       s3.ItfS3
	publisher      rabbitmq.IPublisher
	scanServices   scanService.ScanService
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithSMTPMailer(smtpMailer smtp.ItfSmtp) ServerOption {
	return func(s *Server) error {
		s.smtpMailer = smtpMailer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithWhatsappClient() ServerOption {
	return func(s *Server) error {
		client, err := whatsapp.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize WhatsApp client: %v", err)
			}
			return fmt.Errorf("failed to create WhatsApp client: %w", err)
		}
		s.whatsappClient = client
		return nil
	}
}

func WithPublisher() ServerOption {
	return func(s *Server) error {
		publisher, err := rabbitmq.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to RabbitMQ: %v", err)
			}
			return fmt.Errorf("failed to create publisher: %w", err)
		}
		s.publisher = publisher
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Scan Domain
	scanRepo := scanRepository.New(s.db, s.log)
	s.scanServices = scanService.New(s.log, scanRepo, s.redisServer, s.whatsappClient, s.smtpMailer, s.s3Client, s.publisher, s.utils)
	scanHandlers := scanHandler.New(s.log, s.validator, s.middleware, s.scanServices)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, scanHandlers)
}

func (s *Server) Run() error {
	router := s.engine.Group("/api/v1")
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())
	router.Use(s.middleware.NewRateLimiter)

	for _, h := range s.handlers {
		h.Start(router)
	}

	if s.scanServices != nil {
		go s.runRetentionSweeper()
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	if err := s.engine.Listen(fmt.Sprintf(":%s", port)); err != nil {
		if s.whatsappClient != nil {
			s.whatsappClient.Disconnect()
		}
		if s.publisher != nil {
			s.publisher.Close()
		}
		return err
	}

	return nil
}

// runRetentionSweeper periodically archives and purges sessions older than
// the retention window. The same run is exposed on demand over HTTP.
func (s *Server) runRetentionSweeper() {
	interval := 24 * time.Hour
	if v := os.Getenv("SCAN_RETENTION_INTERVAL_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 {
			s.log.Warnf("Invalid SCAN_RETENTION_INTERVAL_HOURS %q, using default", v)
		} else {
			interval = time.Duration(hours) * time.Hour
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if _, err := s.scanServices.Retention().Run(context.Background()); err != nil {
			s.log.Errorf("Retention sweep failed: %v", err)
		}
	}
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
