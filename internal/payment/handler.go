package payment

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes payment history endpoints.
type Handler struct {
	repo Repository
}

// NewHandler builds a payment HTTP handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// List returns a paginated, searchable payment history, newest first.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 10)
	if limit < 1 {
		limit = 10
	}

	payments, total, err := h.repo.List(c.UserContext(), uid, ListFilter{
		Search: c.Query("search"),
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if payments == nil {
		payments = []Payment{}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"data":  payments,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// Summary returns per-status counts and totals for the operator's payments.
func (h *Handler) Summary(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	summaries, err := h.repo.Summary(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if summaries == nil {
		summaries = []StatusSummary{}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": summaries})
}
