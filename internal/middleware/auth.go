package middleware

import (
	"context"
	"errors"
	"strings"

	"taskmanager/internal/apperror"
	"taskmanager/internal/auth"
	"taskmanager/internal/models"
	"taskmanager/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const identityKey = "identity"

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// RequireAuth rejects requests without a valid bearer token. On success the
// caller's identity is available through CurrentIdentity and
// auth.IdentityFrom(c.UserContext()).
func RequireAuth(authn Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			logger.SecurityLogger.Warn("Missing token", zap.String("path", c.Path()), zap.String("ip", c.IP()))
			return unauthorized(c, "Not authorized, no token provided")
		}
		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.SecurityLogger.Warn("Malformed authorization header", zap.String("path", c.Path()), zap.String("ip", c.IP()))
			return unauthorized(c, "Not authorized, token failed")
		}

		user, err := authn.Authenticate(c.UserContext(), parts[1])
		if err != nil {
			if !errors.Is(err, apperror.ErrUnauthenticated) {
				return err
			}
			logger.SecurityLogger.Warn("Token rejected",
				zap.String("path", c.Path()), zap.String("ip", c.IP()), zap.NamedError("reason", errors.Unwrap(err)))
			return unauthorized(c, apperror.PublicMessage(err))
		}

		id := user.Identity()
		c.SetUserContext(auth.WithIdentity(c.UserContext(), id))
		c.Locals(identityKey, id)
		return c.Next()
	}
}

// CurrentIdentity returns the identity stored by RequireAuth.
func CurrentIdentity(c *fiber.Ctx) (models.Identity, bool) {
	id, ok := c.Locals(identityKey).(models.Identity)
	return id, ok
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
