package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/asc360/operator-portal/internal/payment"
)

// RegisterPaymentRoutes wires the payment history endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payment.Handler) {
	grp := r.Group("/payments")
	grp.Get("", h.List)
	grp.Get("/summary", h.Summary)
}
