package v1

import (
	"time"

	"taskmanager/internal/api/v1/handlers"
	"taskmanager/internal/middleware"
	"taskmanager/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"go.uber.org/zap"
)

type Options struct {
	// ClientURL is the allowed CORS origin.
	ClientURL string
	// RateLimitMax is the per-IP request budget per minute; 0 disables it.
	RateLimitMax int
}

// NewApp builds the Fiber app with the middleware stack and all routes.
func NewApp(h *handlers.Handler, opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Task Manager API",
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    1 << 20,
	})

	app.Use(middleware.ErrorHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins: opts.ClientURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	if opts.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        opts.RateLimitMax,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				logger.SecurityLogger.Warn("Rate limit reached", zap.String("ip", c.IP()))
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"success": false,
					"message": "Too many requests, please try again later",
				})
			},
		}))
	}

	RegisterRoutes(app, h)
	return app
}
