package plan

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes plan catalog endpoints.
type Handler struct {
	repo Repository
}

// NewHandler builds a plan HTTP handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// List returns active plans, optionally filtered by scope and title search.
func (h *Handler) List(c *fiber.Ctx) error {
	plans, err := h.repo.List(c.UserContext(), c.Query("scope"), c.Query("search"))
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if plans == nil {
		plans = []Plan{}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": plans, "total": len(plans)})
}

// Get returns a single plan.
func (h *Handler) Get(c *fiber.Ctx) error {
	p, err := h.repo.Get(c.UserContext(), c.Params("planId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "plan not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": p})
}
