// Package api serves the dashboard catalog REST API over a SQLite catalog.
// It speaks the same wire format the catalog client expects, so a desktop
// client can run against it instead of the hosted service.
package api

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"dashgrid/internal/config"
	"dashgrid/internal/domain"
)

// Catalog is what the server needs from its backing store.
type Catalog interface {
	domain.Catalog
	CreateDashboard(ctx context.Context, title, description string) (*domain.Dashboard, error)
	UpdateDashboard(ctx context.Context, id, title, description string) (*domain.Dashboard, error)
	DeleteDashboard(ctx context.Context, id string) error
	PatchBlock(ctx context.Context, dashboardID, blockID string, patch map[string]any) (*domain.Block, error)
	Ping(ctx context.Context) error
}

// ============================================================
// Server
// ============================================================

type Server struct {
	app     *fiber.App
	catalog Catalog
	logger  *log.Logger
	started time.Time
}

func New(catalog Catalog, cfg config.ServerConfig, logger *log.Logger) *Server {
	s := &Server{
		catalog: catalog,
		logger:  logger,
		started: time.Now(),
	}
	s.app = fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		AppName:      "dashgrid catalog",
	})
	s.routes()
	return s
}

// App exposes the fiber app (tests drive it with App().Test).
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) routes() {
	// ============================================================
	// Global Middleware
	// ============================================================

	s.app.Use(recover.New())
	s.app.Use(requestLogger(s.logger))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
	}))

	// ============================================================
	// Health Check Routes
	// ============================================================

	s.app.Get("/health/live", s.liveness)
	s.app.Get("/health/ready", s.readiness)
	s.app.Get("/health/startup", s.startup)

	// ============================================================
	// Catalog Routes
	// ============================================================

	api := s.app.Group("/api/v1")
	api.Get("/dashboard", s.listDashboards)
	api.Post("/dashboard", s.createDashboard)
	api.Get("/dashboard/:id", s.getDashboard)
	api.Patch("/dashboard/:id", s.updateDashboard)
	api.Delete("/dashboard/:id", s.deleteDashboard)
	api.Post("/view/:dashboard", s.createView)
	api.Patch("/view/:dashboard/:view", s.patchView)
	api.Delete("/view/:dashboard/:view", s.deleteView)
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("catalog server listening", "addr", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func requestLogger(l *log.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		l.Debug("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency", time.Since(start).Round(time.Microsecond),
		)
		return err
	}
}
