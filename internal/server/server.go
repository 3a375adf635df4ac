package server

import (
	"context"
	"log"

	"chatbot-engine-be/internal/bootstrap"
	"chatbot-engine-be/internal/config"
	"chatbot-engine-be/internal/pkg/serverutils"
	"chatbot-engine-be/internal/websocket"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// EscalationPath is where operator consoles attach
const EscalationPath = "/ws/escalations"

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: serverutils.FiberErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.App.CorsAllowedOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + serverutils.AdminKeyHeader,
		AllowMethods:  "GET, POST, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Type",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	// Coarse per-IP limit in front of the abuse detector; health stays open
	app.Use(limiter.New(limiter.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health" || c.Path() == "/api/health"
		},
		Max:        cfg.Security.RateLimitRequests,
		Expiration: cfg.Security.RateLimitWindow,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(serverutils.ErrorResponse(fiber.StatusTooManyRequests, "Too many requests"))
		},
	}))

	// Routes
	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	// widgets embedded before the /api prefix still post to the root paths
	for _, r := range []fiber.Router{api, app} {
		c.ChatbotController.RegisterRoutes(r)
		c.KnowledgeController.RegisterRoutes(r)
		c.HealthController.RegisterRoutes(r)
	}
	c.AdminController.RegisterRoutes(api)

	websocket.RegisterRoutes(app, EscalationPath, c.WebSocketHub, c.AdminAuth.Middleware())
}
