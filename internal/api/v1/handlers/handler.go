package handlers

import (
	"errors"

	"taskmanager/internal/apperror"
	"taskmanager/internal/auth"
	"taskmanager/internal/service"
	"taskmanager/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler binds the HTTP routes to the auth and task services.
type Handler struct {
	Auth  *auth.Service
	Tasks *service.TaskService
	// Database names the active store in the health response.
	Database string
}

func New(authSvc *auth.Service, tasks *service.TaskService, database string) *Handler {
	return &Handler{Auth: authSvc, Tasks: tasks, Database: database}
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "Task Manager API is running!",
		"database": h.Database,
	})
}

func (h *Handler) NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"message": "Route not found",
	})
}

// ErrorHandler is the app-level fallback for errors returned by handlers
// and middleware.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"success": false,
			"message": fe.Message,
		})
	}
	return respondError(c, err)
}

func respondError(c *fiber.Ctx, err error) error {
	status := apperror.StatusCode(err)
	if status >= fiber.StatusInternalServerError {
		logger.ErrorLogger.Error("Request failed",
			zap.String("method", c.Method()),
			zap.String("url", c.OriginalURL()),
			zap.Error(err),
		)
	}

	body := fiber.Map{
		"success": false,
		"message": apperror.PublicMessage(err),
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) && appErr.Kind == apperror.KindValidation && appErr.Field != "" {
		body["errors"] = []fiber.Map{{"field": appErr.Field, "message": appErr.Message}}
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, err error) error {
	logger.AuditLogger.Warn("Bad request body", zap.String("url", c.OriginalURL()), zap.Error(err))
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": "Bad request",
	})
}
