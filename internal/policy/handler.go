package policy

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/asc360/operator-portal/internal/identity"
	"github.com/asc360/operator-portal/internal/ledger"
	"github.com/asc360/operator-portal/internal/plan"
)

// Handler exposes policy HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a policy HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type issueRequest struct {
	PlanID         string `json:"planId"`
	CoverTitle     string `json:"coverTitle"`
	CoverType      string `json:"coverType"`
	TravelerName   string `json:"travelerName"`
	TravelerAge    int    `json:"travelerAge"`
	TravelerGender string `json:"travelerGender"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	Premium        int64  `json:"premium"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// Issue creates a policy, charging the premium to the operator's wallet.
func (h *Handler) Issue(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req issueRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.TravelerName == "" {
		return fiber.NewError(http.StatusBadRequest, "traveler name is required")
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid start date")
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid end date")
	}
	if !end.IsZero() && !start.IsZero() && end.Before(start) {
		return fiber.NewError(http.StatusBadRequest, "end date precedes start date")
	}

	p, err := h.service.Issue(c.UserContext(), IssueInput{
		UserID:         uid,
		PlanID:         req.PlanID,
		CoverTitle:     req.CoverTitle,
		CoverType:      req.CoverType,
		TravelerName:   req.TravelerName,
		TravelerAge:    req.TravelerAge,
		TravelerGender: req.TravelerGender,
		StartDate:      start,
		EndDate:        end,
		Premium:        req.Premium,
	})
	if err != nil {
		return policyError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": p})
}

// List returns a paginated view of the operator's policies.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)
	if page < 1 {
		page = 1
	}

	items, total, err := h.service.List(c.UserContext(), uid, ListFilter{
		Search:    c.Query("search"),
		Status:    c.Query("status"),
		CoverType: c.Query("cover_type"),
		Offset:    (page - 1) * limit,
		Limit:     limit,
	})
	if err != nil {
		return policyError(c, err)
	}
	if items == nil {
		items = []Policy{}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"data":  items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// StatusCounts aggregates the operator's policies per lifecycle status.
func (h *Handler) StatusCounts(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	counts, err := h.service.CountByStatus(c.UserContext(), uid, c.Query("cover_type"))
	if err != nil {
		return policyError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"active":      counts.Active,
		"yetToActive": counts.YetToActive,
		"matured":     counts.Matured,
		"pending":     counts.Pending,
		"total":       counts.Total(),
	})
}

// UpdateStatus moves a policy between lifecycle states.
func (h *Handler) UpdateStatus(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if !ValidStatus(req.Status) {
		return fiber.NewError(http.StatusBadRequest, "unknown policy status")
	}

	p, err := h.service.UpdateStatus(c.UserContext(), c.Params("policyId"), uid, req.Status)
	if err != nil {
		return policyError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": p})
}

// TravelersByAge returns age-bucketed traveler counts for the dashboard.
func (h *Handler) TravelersByAge(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	buckets, err := h.service.TravelersByAge(c.UserContext(), uid)
	if err != nil {
		return policyError(c, err)
	}
	if buckets == nil {
		buckets = []AgeGenderBucket{}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": buckets})
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// policyError maps domain failures to stable machine-readable codes.
func policyError(c *fiber.Ctx, err error) error {
	var status int
	var code string
	switch {
	case errors.Is(err, ErrNotFound):
		status, code = http.StatusNotFound, "policy_not_found"
	case errors.Is(err, plan.ErrNotFound):
		status, code = http.StatusNotFound, "plan_not_found"
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
		status, code = http.StatusBadRequest, "invalid_request"
	}
	return c.Status(status).JSON(fiber.Map{
		"code":    code,
		"message": err.Error(),
	})
}
