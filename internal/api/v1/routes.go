package v1

import (
	"taskmanager/internal/api/v1/handlers"
	"taskmanager/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *handlers.Handler) {
	protect := middleware.RequireAuth(h.Auth)

	app.Get("/", h.Health)

	api := app.Group("/api")

	// Auth
	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", h.Register)
	authRoutes.Post("/login", h.Login)
	authRoutes.Get("/me", protect, h.Me)

	// Task
	taskRoutes := api.Group("/tasks", protect)
	taskRoutes.Get("/", h.ListTasks)
	taskRoutes.Post("/", h.CreateTask)
	taskRoutes.Get("/:id", h.GetTask)
	taskRoutes.Put("/:id", h.UpdateTask)
	taskRoutes.Delete("/:id", h.DeleteTask)

	app.Use(h.NotFound)
}
