package bootstrap

import (
	"strings"
	"time"

	"ticket_server/adapter/in/http"
	"ticket_server/config"
	"ticket_server/infra/middleware"
	"ticket_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "ticket-api",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		Prefork:               false,
		StrictRouting:         false,
		CaseSensitive:         false,

		ReadBufferSize:  16384,
		WriteBufferSize: 16384,

		// go-json is markedly faster than encoding/json for these payloads
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		// Ticket bodies arrive inline, so the limit stays modest
		BodyLimit: 2 * 1024 * 1024,

		ServerHeader:       "",
		DisableDefaultDate: true,
		DisableKeepalive:   false,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())             // 1. Panic recovery
	app.Use(middleware.RequestID())           // 2. Request ID
	app.Use(middleware.SecurityHeaders())     // 3. Security headers
	app.Use(middleware.ValidateContentType()) // 4. Content type check
	app.Use(middleware.RequestLogger())       // 5. Request logging

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// CORS - the webhook is server-to-server, browsers only hit health
	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders: "X-Request-ID,X-RateLimit-Limit,X-RateLimit-Remaining,X-RateLimit-Reset",
		MaxAge:        86400,
	}))

	// Health check (no auth required)
	healthHandler := http.NewHealthHandlerWithDeps(deps.DB, deps.Redis, deps.MongoDB)
	healthHandler.Register(app)

	// Webhook route protection: retry storms from the helpdesk are the
	// realistic flood scenario here
	rateLimiter := middleware.NewRateLimiter(300, time.Minute)
	app.Use("/webhook", rateLimiter.Handler())
	app.Use("/webhooks", rateLimiter.Handler())
	app.Use("/webhook", middleware.MaxBodySize(1024*1024))
	app.Use("/webhooks", middleware.MaxBodySize(1024*1024))
	app.Use("/webhook", middleware.WebhookAuth(cfg.JWTSecret))
	app.Use("/webhooks", middleware.WebhookAuth(cfg.JWTSecret))

	webhookHandler := http.NewTicketWebhookHandler(deps.Dispatcher, deps.Redis)
	webhookHandler.Register(app)

	logger.Info("API server initialized successfully")

	return app, cleanup, nil
}
