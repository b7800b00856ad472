package routes

import (
	"encoding/json"
	"errors"

	"github.com/1rvyn/movie-tier-predictor/classifier"
	"github.com/1rvyn/movie-tier-predictor/middleware"
	"github.com/1rvyn/movie-tier-predictor/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"
)

const msgSubmitFirst = "Submit the movie details before predicting the rating tier."

type predictPage struct {
	Title      string
	Name       string
	Options    models.Options
	Columns    []string
	Input      models.MovieInput
	Errors     map[string]string
	Submitted  *models.MovieInput
	Prediction *classifier.Prediction
	TierScale  any
	Notice     string
	Error      string
}

func (h *Handler) newPredictPage(c *fiber.Ctx) predictPage {
	name, _ := c.Locals(middleware.LocalName).(string)
	return predictPage{
		Title:     pageTitle,
		Name:      name,
		Options:   models.FormOptions(),
		Columns:   models.Columns,
		Input:     defaultInput(),
		Errors:    map[string]string{},
		TierScale: classifier.TierScale,
	}
}

// defaultInput mirrors the initial widget state: first option of every list,
// rating 0 and all flags 0.
func defaultInput() models.MovieInput {
	return models.MovieInput{
		DurationMins:   models.DurationOptions[0],
		Studio:         models.StudioOptions[0],
		ProductionYear: models.ProductionYearOptions[0],
		GenrePrimary:   models.GenreOptions[0],
		USBoxOffice:    models.USBoxOfficeOptions[0],
	}
}

func (h *Handler) Home(c *fiber.Ctx) error {
	page := h.newPredictPage(c)

	sess, err := h.Store.Get(c)
	if err != nil {
		h.Log.Error("error retrieving session", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}
	if in, ok := storedInput(sess, h.Log); ok {
		page.Input = in
		page.Submitted = &in
	}

	return c.Render("predict", page, "layout")
}

func (h *Handler) Submit(c *fiber.Ctx) error {
	page := h.newPredictPage(c)

	var in models.MovieInput
	if err := c.BodyParser(&in); err != nil {
		page.Error = "Could not read the form, please check every field."
		return c.Status(fiber.StatusBadRequest).Render("predict", page, "layout")
	}
	in.Normalize()
	page.Input = in

	if err := h.Validator.Validate(in); err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			page.Errors = verr.Fields
		}
		page.Error = "Some fields are not valid."
		return c.Status(fiber.StatusUnprocessableEntity).Render("predict", page, "layout")
	}

	sess, err := h.Store.Get(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Error getting session")
	}
	encoded, err := json.Marshal(in)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Error encoding input")
	}
	sess.Set(middleware.SessionUserInputs, string(encoded))
	if err := sess.Save(); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Error saving session")
	}

	page.Submitted = &in
	return c.Render("predict", page, "layout")
}

// Predict scores the row stored by Submit, not the current widget values.
func (h *Handler) Predict(c *fiber.Ctx) error {
	page := h.newPredictPage(c)

	sess, err := h.Store.Get(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Error getting session")
	}
	in, ok := storedInput(sess, h.Log)
	if !ok {
		page.Notice = msgSubmitFirst
		return c.Status(fiber.StatusBadRequest).Render("predict", page, "layout")
	}
	page.Input = in
	page.Submitted = &in

	pred, err := h.Predictor.Predict(in)
	if err != nil {
		h.Log.Error("prediction failed", zap.Error(err))
		page.Error = "The model could not score this movie."
		return c.Status(fiber.StatusInternalServerError).Render("predict", page, "layout")
	}

	username, _ := c.Locals(middleware.LocalUsername).(string)
	h.Log.Info("prediction",
		zap.String("username", username),
		zap.Int("class", pred.Class),
		zap.String("tier", string(pred.Tier)),
	)
	page.Prediction = &pred
	return c.Render("predict", page, "layout")
}

func storedInput(sess *session.Session, log *zap.Logger) (models.MovieInput, bool) {
	raw, _ := sess.Get(middleware.SessionUserInputs).(string)
	if raw == "" {
		return models.MovieInput{}, false
	}
	var in models.MovieInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		log.Warn("discarding unreadable session input", zap.Error(err))
		return models.MovieInput{}, false
	}
	return in, true
}
