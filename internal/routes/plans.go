package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/asc360/operator-portal/internal/plan"
)

// RegisterPlanRoutes wires the plan catalogue endpoints.
func RegisterPlanRoutes(r fiber.Router, h *plan.Handler) {
	grp := r.Group("/plans")
	grp.Get("", h.List)
	grp.Get("/:planId", h.Get)
}
