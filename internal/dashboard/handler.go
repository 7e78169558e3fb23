package dashboard

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/asc360/operator-portal/internal/ledger"
	"github.com/asc360/operator-portal/internal/policy"
)

// Handler exposes dashboard HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a dashboard HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Stats returns the operator's landing-page aggregates.
func (h *Handler) Stats(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	stats, err := h.service.Stats(c.UserContext(), uid, c.Query("cover_type"))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": stats})
}

// TravelersByAge returns age-bucketed traveler counts.
func (h *Handler) TravelersByAge(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	buckets, err := h.service.TravelersByAge(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if buckets == nil {
		buckets = []policy.AgeGenderBucket{}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": buckets})
}
