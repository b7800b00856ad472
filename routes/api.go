package routes

import (
	"errors"

	"github.com/1rvyn/movie-tier-predictor/classifier"
	"github.com/1rvyn/movie-tier-predictor/models"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type predictResponse struct {
	Class         int       `json:"class"`
	Tier          string    `json:"tier"`
	Probabilities []float64 `json:"probabilities,omitempty"`
	Note          string    `json:"note"`
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func Options(c *fiber.Ctx) error {
	return c.JSON(models.FormOptions())
}

func (h *Handler) APIPredict(c *fiber.Ctx) error {
	var in models.MovieInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	in.Normalize()

	if err := h.Validator.Validate(in); err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  "validation failed",
				"fields": verr.Fields,
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	pred, err := h.Predictor.Predict(in)
	if err != nil {
		h.Log.Error("prediction failed", zap.Error(err))
		status := fiber.StatusInternalServerError
		if errors.Is(err, classifier.ErrUnknownCategory) {
			status = fiber.StatusUnprocessableEntity
		}
		return c.Status(status).JSON(fiber.Map{"error": "prediction failed"})
	}

	return c.JSON(predictResponse{
		Class:         pred.Class,
		Tier:          string(pred.Tier),
		Probabilities: pred.Probabilities,
		Note:          classifier.TierNote,
	})
}
