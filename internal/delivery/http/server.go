package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"go.uber.org/zap"

	"github.com/planning-data/entity-search/internal/config"
	"github.com/planning-data/entity-search/internal/delivery/http/handler"
	"github.com/planning-data/entity-search/internal/delivery/http/middleware"
)

// HealthChecker is anything with a liveness probe (database, cache).
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server - HTTP сервер на основе Fiber
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	entityHandler  *handler.EntityHandler
	datasetHandler *handler.DatasetHandler
	healthChecks   map[string]HealthChecker
}

// NewServer - создание нового HTTP сервера
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	entityHandler *handler.EntityHandler,
	datasetHandler *handler.DatasetHandler,
	healthChecks map[string]HealthChecker,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Planning Entity Search",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:            app,
		config:         cfg,
		logger:         logger,
		entityHandler:  entityHandler,
		datasetHandler: datasetHandler,
		healthChecks:   healthChecks,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

// setupMiddlewares - настройка middleware
func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS())
	s.app.Use(middleware.RateLimit(s.config.Server.RateLimit, s.config.Server.RateBurst))
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

// setupRoutes - настройка маршрутов
func (s *Server) setupRoutes() {
	api := s.app.Group("/api/v1")

	api.Get("/health", s.health)

	api.Get("/entities", s.entityHandler.Search)
	api.Get("/entities/:id", s.entityHandler.GetByID)

	api.Get("/datasets", s.datasetHandler.List)
}

func (s *Server) health(c *fiber.Ctx) error {
	status := fiber.Map{"status": "healthy", "time": time.Now()}
	code := fiber.StatusOK

	for name, check := range s.healthChecks {
		if err := check.Health(c.Context()); err != nil {
			s.logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			status[name] = "unhealthy"
			status["status"] = "degraded"
			code = fiber.StatusServiceUnavailable
			continue
		}
		status[name] = "healthy"
	}

	return c.Status(code).JSON(status)
}

// Start - запуск HTTP сервера
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown - graceful shutdown HTTP сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler - кастомный обработчик ошибок
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error("HTTP Error",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		return c.Status(code).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "INTERNAL_SERVER_ERROR",
				"message": "Internal server error",
			},
		})
	}
}
