package middleware

import (
	"strings"

	"projectwatch/internal/apperror"
	"projectwatch/internal/models"
	"projectwatch/internal/services"

	"github.com/gofiber/fiber/v2"
)

const currentUserKey = "current_user"

// AuthRequired is a Fiber middleware to check for a valid bearer token. It
// must run after Session.
func AuthRequired(provider *services.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperror.Unauthorized("Not authenticated", nil)
		}

		// Expected format: "Bearer <token>"
		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return apperror.Unauthorized("Authorization header format must be 'Bearer <token>'", nil)
		}

		session := SessionFrom(c)
		if session == nil {
			return apperror.NotInitialized()
		}
		user, err := provider.Auth(session.DB()).ResolveCurrentUser(strings.TrimSpace(token))
		if err != nil {
			return err
		}

		// Store the user in Fiber context for subsequent handlers
		c.Locals(currentUserKey, user)
		return c.Next()
	}
}

// CurrentUser returns the user AuthRequired resolved, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(currentUserKey).(*models.User)
	return user
}
