package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/taekabu/linkfan/internal/app/model"
	"github.com/taekabu/linkfan/internal/app/repository"
	httpUtil "github.com/taekabu/linkfan/internal/http/util"
	"go.uber.org/zap"
)

const userLocalsKey = "auth_user"

// RequireAuth validates the session token (cookie or bearer header) and
// loads the owning user for downstream handlers.
func RequireAuth(sessions *httpUtil.SessionSigner, users repository.UserRepository, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies("session")
		if token == "" {
			if auth := c.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}

		userID, err := sessions.Verify(token)
		if err != nil {
			if errors.Is(err, httpUtil.ErrInvalidSession) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": err.Error(),
				})
			}
			logger.Error("failed to verify session token", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to verify session",
			})
		}

		ctx := c.UserContext()
		if ctx == nil {
			ctx = context.Background()
		}

		user, err := users.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "unknown user",
				})
			}
			logger.Error("failed to load session user", zap.Int64("user_id", userID), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load user",
			})
		}

		c.Locals(userLocalsKey, user)
		return c.Next()
	}
}

// AuthenticatedUser returns the user stored by RequireAuth, or nil.
func AuthenticatedUser(c *fiber.Ctx) *model.User {
	user, _ := c.Locals(userLocalsKey).(*model.User)
	return user
}
