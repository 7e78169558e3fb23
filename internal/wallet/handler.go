package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/asc360/operator-portal/internal/identity"
	"github.com/asc360/operator-portal/internal/ledger"
)

const idempotencyKeyHeader = "Idempotency-Key"

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type creditRequest struct {
	Amount int64  `json:"amount"`
	Note   string `json:"note"`
}

// Overview returns balance, owner profile and recent transactions.
func (h *Handler) Overview(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	overview, err := h.service.Overview(c.UserContext(), uid)
	if err != nil {
		return ledgerError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"balance":      overview.Balance.Amount,
		"asOf":         overview.Balance.AsOf,
		"transactions": overview.Transactions,
		"user": fiber.Map{
			"id":           overview.User.ID,
			"name":         overview.User.Name,
			"email":        overview.User.Email,
			"operatorCode": overview.User.OperatorCode,
			"operatorType": overview.User.OperatorType,
			"phone":        overview.User.Phone,
		},
	})
}

// Transactions returns a paginated, filterable transaction history, most
// recent first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	search := c.Query("search")
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	result, balance, err := h.service.Transactions(c.UserContext(), uid, search, page, limit)
	if err != nil {
		return ledgerError(c, err)
	}
	items := result.Items
	if items == nil {
		items = []ledger.Transaction{}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"data":    items,
		"total":   result.Total,
		"page":    page,
		"limit":   limit,
		"balance": balance.Amount,
	})
}

// Credit adds funds to the authenticated operator's wallet. The Idempotency-Key
// header, when present, becomes the transaction number so retries are safe.
func (h *Handler) Credit(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req creditRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	txn, balance, err := h.service.Credit(c.UserContext(), uid, req.Amount, req.Note, c.Get(idempotencyKeyHeader))
	if err != nil {
		return ledgerError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction": txn,
		"balance":     balance.Amount,
	})
}

// Reconcile reports whether the stored balance matches the recomputed one.
func (h *Handler) Reconcile(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	report, err := h.service.Reconcile(c.UserContext(), uid)
	if err != nil {
		return ledgerError(c, err)
	}
	return c.Status(http.StatusOK).JSON(report)
}

// ledgerError maps ledger failures to stable machine-readable codes.
func ledgerError(c *fiber.Ctx, err error) error {
	var status int
	var code string
	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, identity.ErrNotFound):
		status, code = http.StatusNotFound, "wallet_not_found"
	case errors.Is(err, ledger.ErrInvalidAmount):
		status, code = http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		status, code = http.StatusUnprocessableEntity, "insufficient_balance"
	case errors.Is(err, ledger.ErrConflict):
		status, code = http.StatusConflict, "idempotency_conflict"
	case errors.Is(err, ledger.ErrStorageUnavailable):
		status, code = http.StatusServiceUnavailable, "storage_unavailable"
	default:
		status, code = http.StatusInternalServerError, "internal_error"
	}
	return c.Status(status).JSON(fiber.Map{
		"code":    code,
		"message": err.Error(),
	})
}
