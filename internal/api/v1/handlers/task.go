package handlers

import (
	"taskmanager/internal/middleware"
	"taskmanager/internal/models"
	"taskmanager/internal/query"
	"taskmanager/internal/service"

	"github.com/gofiber/fiber/v2"
)

func identity(c *fiber.Ctx) (models.Identity, error) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return models.Identity{}, fiber.ErrUnauthorized
	}
	return id, nil
}

func (h *Handler) ListTasks(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var spec query.Spec
	if err := c.QueryParser(&spec); err != nil {
		return badRequest(c, err)
	}

	list, err := h.Tasks.List(c.UserContext(), id, spec)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"count":   list.Count,
		"data":    list.Data,
	})
}

func (h *Handler) CreateTask(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var in service.CreateTaskInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, err)
	}

	task, err := h.Tasks.Create(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

func (h *Handler) GetTask(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	task, err := h.Tasks.Get(c.UserContext(), id, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

func (h *Handler) UpdateTask(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var in service.UpdateTaskInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, err)
	}

	task, err := h.Tasks.Update(c.UserContext(), id, c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    task,
	})
}

func (h *Handler) DeleteTask(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	if err := h.Tasks.Delete(c.UserContext(), id, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Task deleted successfully",
	})
}
