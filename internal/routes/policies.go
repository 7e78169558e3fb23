package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/asc360/operator-portal/internal/policy"
)

// RegisterPolicyRoutes wires the policy issuance and reporting endpoints.
func RegisterPolicyRoutes(r fiber.Router, h *policy.Handler) {
	grp := r.Group("/policies")
	grp.Post("", h.Issue)
	grp.Get("", h.List)
	grp.Get("/status-counts", h.StatusCounts)
	grp.Get("/travelers-by-age", h.TravelersByAge)
	grp.Patch("/:policyId/status", h.UpdateStatus)
}
