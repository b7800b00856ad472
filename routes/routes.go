package routes

import (
	"context"
	"sync"
	"time"

	"github.com/1rvyn/movie-tier-predictor/auth"
	"github.com/1rvyn/movie-tier-predictor/classifier"
	"github.com/1rvyn/movie-tier-predictor/middleware"
	"github.com/1rvyn/movie-tier-predictor/models"
	"github.com/1rvyn/movie-tier-predictor/tracking"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"
)

const (
	trackTimeout = 10 * time.Second

	// SessionCookie holds the server-side session ID.
	SessionCookie = "movie_session"
)

// Predictor runs the inference pipeline on one row.
type Predictor interface {
	Predict(row classifier.Row) (classifier.Prediction, error)
}

// Handler carries everything the routes need.
type Handler struct {
	Store     *session.Store
	Auth      *auth.Authenticator
	Tokens    *auth.TokenIssuer
	Predictor Predictor
	Validator *models.Validator
	Tracker   tracking.Tracker
	Log       *zap.Logger

	CookieName   string
	SecureCookie bool

	// Login attempts per IP per minute.
	LoginRateLimit int

	tracking sync.WaitGroup
}

// Register mounts every route on app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", Health)

	app.Use(middleware.RememberMe(middleware.RememberConfig{
		Store:         h.Store,
		Tokens:        h.Tokens,
		Users:         h.Auth,
		CookieName:    h.CookieName,
		SessionCookie: SessionCookie,
		Log:           h.Log,
		OnLogin: func(c *fiber.Ctx, u models.User) {
			h.trackLogin(u.Username)
		},
	}))

	// Public routes
	app.Get("/login", h.LoginPage)
	app.Post("/login", limiter.New(limiter.Config{
		Max:        h.LoginRateLimit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).Render("login", loginPage{
				Title: pageTitle,
				Error: "Too many login attempts, try again in a minute",
			}, "layout")
		},
	}), h.Login)
	app.Post("/logout", h.Logout)

	// Protected API
	api := app.Group("/api", middleware.SessionAuthRequired(h.Store, h.Log))
	api.Get("/options", Options)
	api.Post("/predict", h.APIPredict)

	// Protected pages, guarded per route so /api keeps its JSON 401.
	guard := middleware.PageAuthRequired(h.Store, h.Log)
	app.Get("/", guard, h.Home)
	app.Post("/submit", guard, h.Submit)
	app.Post("/predict", guard, h.Predict)
}

// trackLogin records the login in the background so a slow sheet never
// delays the redirect. Failures are logged.
func (h *Handler) trackLogin(username string) {
	if h.Tracker == nil {
		return
	}
	at := time.Now()

	h.tracking.Add(1)
	go func() {
		defer h.tracking.Done()
		ctx, cancel := context.WithTimeout(context.Background(), trackTimeout)
		defer cancel()

		if err := h.Tracker.TrackLogin(ctx, username, at); err != nil {
			h.Log.Warn("failed to track login", zap.String("username", username), zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight login tracking has finished.
func (h *Handler) Wait() {
	h.tracking.Wait()
}
