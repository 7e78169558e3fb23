package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/asc360/operator-portal/internal/wallet"
)

// RegisterWalletRoutes wires the authenticated wallet endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	grp := r.Group("/wallet")
	grp.Get("", h.Overview)
	grp.Get("/transactions", h.Transactions)
	grp.Post("/credit", h.Credit)
	grp.Get("/reconcile", h.Reconcile)
}
