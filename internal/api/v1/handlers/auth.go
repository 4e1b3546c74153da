package handlers

import (
	"taskmanager/internal/auth"
	"taskmanager/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) Register(c *fiber.Ctx) error {
	var in auth.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, err)
	}

	session, err := h.Auth.Register(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"token":   session.Token,
		"user":    session.User,
	})
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var in auth.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, err)
	}

	session, err := h.Auth.Login(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"token":   session.Token,
		"user":    session.User,
	})
}

func (h *Handler) Me(c *fiber.Ctx) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    id,
	})
}
