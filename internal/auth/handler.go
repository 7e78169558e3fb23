package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/asc360/operator-portal/internal/identity"
)

// WalletProvisioner opens the wallet ledger for a freshly registered operator.
type WalletProvisioner interface {
	Provision(ctx context.Context, userID string) error
}

// Handler exposes authentication and profile endpoints.
type Handler struct {
	identity *identity.Service
	tokens   *Service
	wallets  WalletProvisioner
}

// NewHandler builds the auth HTTP handler.
func NewHandler(identitySvc *identity.Service, tokens *Service, wallets WalletProvisioner) *Handler {
	return &Handler{identity: identitySvc, tokens: tokens, wallets: wallets}
}

type registerRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Phone        string `json:"phone"`
	OperatorType string `json:"operatorType"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type profileRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	OperatorType string `json:"operatorType"`
}

// Register creates an operator account, opens its wallet ledger and returns a
// token.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	user, err := h.identity.Register(c.UserContext(), identity.RegisterInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Phone:        req.Phone,
		OperatorType: req.OperatorType,
	})
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	if err := h.wallets.Provision(c.UserContext(), user.ID); err != nil {
		return fiber.NewError(http.StatusInternalServerError, "provision wallet: "+err.Error())
	}

	token, expiresIn, err := h.tokens.Issue(user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"token":      token,
		"expires_in": expiresIn,
		"user":       userView(user),
	})
}

// Login validates credentials and issues an access token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password required")
	}

	user, err := h.identity.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	token, expiresIn, err := h.tokens.Issue(user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"token":      token,
		"expires_in": expiresIn,
		"user":       userView(user),
	})
}

// Me returns the authenticated operator's profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	user, err := h.identity.FindByID(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "user not found")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": userView(user)})
}

// ChangePassword verifies the current password and stores the new one.
func (h *Handler) ChangePassword(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return fiber.NewError(http.StatusBadRequest, "both passwords required")
	}

	if err := h.identity.ChangePassword(c.UserContext(), uid, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return fiber.NewError(http.StatusBadRequest, "current password is incorrect")
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "password updated"})
}

// UpdateProfile applies the provided profile fields.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	user, err := h.identity.UpdateProfile(c.UserContext(), uid, identity.ProfileUpdate{
		Name:         req.Name,
		Phone:        req.Phone,
		OperatorType: req.OperatorType,
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": userView(user)})
}

func userView(user identity.User) fiber.Map {
	return fiber.Map{
		"id":           user.ID,
		"name":         user.Name,
		"email":        user.Email,
		"phone":        user.Phone,
		"operatorCode": user.OperatorCode,
		"operatorType": user.OperatorType,
		"role":         user.Role,
		"created_at":   user.CreatedAt,
	}
}
