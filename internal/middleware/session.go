package middleware

import (
	"projectwatch/internal/database"

	"github.com/gofiber/fiber/v2"
)

const sessionKey = "db_session"

// Session acquires a database session for the request and releases it when
// the rest of the chain returns, whatever the outcome.
func Session(registry *database.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := registry.AcquireSession(c.UserContext())
		if err != nil {
			return err
		}
		defer session.Close()

		c.Locals(sessionKey, session)
		return c.Next()
	}
}

// SessionFrom returns the session Session stored on c, or nil.
func SessionFrom(c *fiber.Ctx) *database.Session {
	session, _ := c.Locals(sessionKey).(*database.Session)
	return session
}
