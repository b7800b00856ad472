package routes

import (
	"errors"

	"github.com/1rvyn/movie-tier-predictor/auth"
	"github.com/1rvyn/movie-tier-predictor/middleware"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	pageTitle = "Movie Rating Prediction"

	msgEnterCredentials = "Please enter your username and password"
	msgBadCredentials   = "Username/password is incorrect"
)

type loginPage struct {
	Title    string
	Username string
	Error    string
	Warning  string
}

type loginRequest struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

func (h *Handler) LoginPage(c *fiber.Ctx) error {
	sess, err := h.Store.Get(c)
	if err != nil {
		h.Log.Error("error retrieving session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}
	if username, _ := sess.Get(middleware.SessionUsername).(string); username != "" {
		return c.Redirect("/")
	}

	return c.Render("login", loginPage{Title: pageTitle, Warning: msgEnterCredentials}, "layout")
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).Render("login", loginPage{Title: pageTitle, Warning: msgEnterCredentials}, "layout")
	}

	user, err := h.Auth.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return c.Status(fiber.StatusBadRequest).Render("login", loginPage{
			Title:    pageTitle,
			Username: req.Username,
			Warning:  msgEnterCredentials,
		}, "layout")
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.Log.Info("failed login", zap.String("username", req.Username), zap.String("ip", c.IP()))
		return c.Status(fiber.StatusUnauthorized).Render("login", loginPage{
			Title:    pageTitle,
			Username: req.Username,
			Error:    msgBadCredentials,
		}, "layout")
	case err != nil:
		h.Log.Error("login error", zap.String("username", req.Username), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	sess, err := h.Store.Get(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Error getting session")
	}
	if err := sess.Regenerate(); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Error getting session")
	}
	sess.Set(middleware.SessionUsername, user.Username)
	sess.Set(middleware.SessionName, user.Name)
	if err := sess.Save(); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Error saving session")
	}

	token, exp, err := h.Tokens.Issue(user.Username, user.Name)
	if err != nil {
		h.Log.Error("failed to issue remember-me cookie", zap.Error(err))
	} else {
		c.Cookie(&fiber.Cookie{
			Name:     h.CookieName,
			Value:    token,
			Expires:  exp,
			HTTPOnly: true,
			Secure:   h.SecureCookie,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}

	h.Log.Info("user logged in", zap.String("username", user.Username))
	h.trackLogin(user.Username)

	return c.Redirect("/")
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	sess, err := h.Store.Get(c)
	if err == nil {
		if err := sess.Destroy(); err != nil {
			h.Log.Warn("error destroying session", zap.Error(err))
		}
	}
	middleware.ClearCookie(c, h.CookieName)
	return c.Redirect("/login")
}
