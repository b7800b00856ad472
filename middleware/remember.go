package middleware

import (
	"time"

	"github.com/1rvyn/movie-tier-predictor/auth"
	"github.com/1rvyn/movie-tier-predictor/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"
)

// UserLookup finds users that are still allowed to log in.
type UserLookup interface {
	Lookup(username string) (models.User, bool)
}

// RememberConfig wires the remember-me cookie restore.
type RememberConfig struct {
	Store      *session.Store
	Tokens     *auth.TokenIssuer
	Users      UserLookup
	CookieName string
	Log        *zap.Logger

	// SessionCookie is the session store's cookie name. The regenerated ID
	// is written back to the request under it so later handlers see it.
	SessionCookie string

	// OnLogin runs after a session is restored from the cookie.
	OnLogin func(c *fiber.Ctx, user models.User)
}

// RememberMe logs a visitor back in from a valid remember-me cookie when
// their session has gone. Invalid cookies are cleared.
func RememberMe(cfg RememberConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(cfg.CookieName)
		if token == "" {
			return c.Next()
		}

		sess, err := cfg.Store.Get(c)
		if err != nil {
			cfg.Log.Error("error retrieving session", zap.Error(err))
			return c.Next()
		}
		if username, _ := sess.Get(SessionUsername).(string); username != "" {
			return c.Next()
		}

		claims, err := cfg.Tokens.Verify(token)
		if err != nil {
			cfg.Log.Debug("discarding remember-me cookie", zap.Error(err))
			ClearCookie(c, cfg.CookieName)
			return c.Next()
		}

		user, ok := cfg.Users.Lookup(claims.Username)
		if !ok {
			cfg.Log.Info("remember-me cookie for removed user", zap.String("username", claims.Username))
			ClearCookie(c, cfg.CookieName)
			return c.Next()
		}

		// Never keep a session ID the client picked.
		if err := sess.Regenerate(); err != nil {
			cfg.Log.Error("error regenerating session", zap.Error(err))
			return c.Next()
		}
		sess.Set(SessionUsername, user.Username)
		sess.Set(SessionName, user.Name)
		id := sess.ID()
		if err := sess.Save(); err != nil {
			cfg.Log.Error("error saving session", zap.Error(err))
			return c.Next()
		}
		if cfg.SessionCookie != "" {
			c.Request().Header.SetCookie(cfg.SessionCookie, id)
		}

		cfg.Log.Info("session restored from cookie", zap.String("username", user.Username))
		if cfg.OnLogin != nil {
			cfg.OnLogin(c, user)
		}
		return c.Next()
	}
}

// ClearCookie expires the named cookie in the browser.
func ClearCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
