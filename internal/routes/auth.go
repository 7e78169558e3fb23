package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/asc360/operator-portal/internal/auth"
)

// RegisterAuthRoutes wires the public registration and login endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, loginRateLimit fiber.Handler) {
	grp := r.Group("/auth")
	grp.Post("/register", h.Register)
	grp.Post("/login", loginRateLimit, h.Login)
}

// RegisterProfileRoutes wires the authenticated account endpoints.
func RegisterProfileRoutes(r fiber.Router, h *auth.Handler) {
	grp := r.Group("/auth")
	grp.Get("/me", h.Me)
	grp.Post("/change-password", h.ChangePassword)
	grp.Patch("/profile", h.UpdateProfile)
}
