package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"
)

// Session keys shared by the middleware and the routes.
const (
	SessionUsername   = "username"
	SessionName       = "name"
	SessionUserInputs = "user_inputs"
)

// Locals set for authenticated requests.
const (
	LocalUsername = "username"
	LocalName     = "name"
)

// SessionAuthRequired rejects API requests without a logged-in session.
func SessionAuthRequired(store *session.Store, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ok, err := loadUser(c, store)
		if err != nil {
			log.Error("error retrieving session", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal Server Error",
			})
		}
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}

// PageAuthRequired sends visitors without a session to the login page.
func PageAuthRequired(store *session.Store, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ok, err := loadUser(c, store)
		if err != nil {
			log.Error("error retrieving session", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
		}
		if !ok {
			return c.Redirect("/login")
		}
		return c.Next()
	}
}

func loadUser(c *fiber.Ctx, store *session.Store) (bool, error) {
	sess, err := store.Get(c)
	if err != nil {
		return false, err
	}

	username, _ := sess.Get(SessionUsername).(string)
	if username == "" {
		return false, nil
	}
	name, _ := sess.Get(SessionName).(string)

	c.Locals(LocalUsername, username)
	c.Locals(LocalName, name)
	return true, nil
}
