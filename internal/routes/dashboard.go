package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/asc360/operator-portal/internal/dashboard"
)

// RegisterDashboardRoutes wires the landing-page aggregate endpoints.
func RegisterDashboardRoutes(r fiber.Router, h *dashboard.Handler) {
	grp := r.Group("/dashboard")
	grp.Get("/stats", h.Stats)
	grp.Get("/travelers-by-age", h.TravelersByAge)
}
