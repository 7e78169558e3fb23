package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/asc360/operator-portal/internal/identity"
	"github.com/asc360/operator-portal/internal/ledger"
	"github.com/asc360/operator-portal/internal/payment"
	"github.com/asc360/operator-portal/internal/plan"
)

// Service issues policies. The premium is charged against the operator's
// wallet ledger with the policy number as idempotency key, so a retried
// issuance can never double-debit.
type Service struct {
	repo     Repository
	plans    plan.Repository
	payments payment.Repository
	ledger   *ledger.Service
	users    *identity.Service

	numberPrefix string
	currency     string
	logger       *slog.Logger
}

// NewService constructs a policy service.
func NewService(repo Repository, plans plan.Repository, payments payment.Repository, ledgerSvc *ledger.Service, users *identity.Service, numberPrefix, currency string, logger *slog.Logger) *Service {
	if numberPrefix == "" {
		numberPrefix = "ASC360"
	}
	if currency == "" {
		currency = "INR"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:         repo,
		plans:        plans,
		payments:     payments,
		ledger:       ledgerSvc,
		users:        users,
		numberPrefix: numberPrefix,
		currency:     currency,
		logger:       logger,
	}
}

// IssueInput captures the validated request to issue a cover.
type IssueInput struct {
	UserID         string
	PlanID         string
	CoverTitle     string
	CoverType      string
	TravelerName   string
	TravelerAge    int
	TravelerGender string
	StartDate      time.Time
	EndDate        time.Time
	Premium        int64
}

// Issue validates the input, debits the premium from the operator's wallet
// and records the policy plus its payment entry.
func (s *Service) Issue(ctx context.Context, input IssueInput) (Policy, error) {
	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		return Policy{}, err
	}

	// Plan fields are authoritative when a plan is referenced; in particular
	// the premium is the plan price, never a caller-supplied number.
	if input.PlanID != "" {
		pl, err := s.plans.Get(ctx, input.PlanID)
		if err != nil {
			return Policy{}, err
		}
		input.Premium = pl.Price
		if input.CoverTitle == "" {
			input.CoverTitle = pl.Title
		}
		if input.CoverType == "" {
			input.CoverType = pl.Scope
		}
	}

	if input.CoverTitle == "" {
		return Policy{}, errors.New("cover title is required")
	}
	if input.CoverType != CoverDomestic && input.CoverType != CoverInternational {
		return Policy{}, fmt.Errorf("unknown cover type %q", input.CoverType)
	}
	if input.TravelerAge < 0 || input.TravelerAge > 130 {
		return Policy{}, fmt.Errorf("implausible traveler age %d", input.TravelerAge)
	}
	switch input.TravelerGender {
	case "", "Male", "Female", "Other":
	default:
		return Policy{}, fmt.Errorf("unknown traveler gender %q", input.TravelerGender)
	}
	if input.Premium < 0 {
		return Policy{}, ledger.ErrInvalidAmount
	}

	// The random tail keeps numbers unique when issues land in the same
	// millisecond; the number doubles as the ledger idempotency key.
	number := fmt.Sprintf("%s-POL-%d-%s", s.numberPrefix, time.Now().UnixMilli(),
		strings.ToUpper(uuid.NewString()[:6]))

	var paidWith ledger.Transaction
	if input.Premium > 0 {
		paidWith, err = s.ledger.Debit(ctx, input.UserID, input.Premium, user.Name, "Policy "+number, number)
		if err != nil {
			return Policy{}, err
		}
	}

	p := Policy{
		ID:             uuid.NewString(),
		Number:         number,
		CoverTitle:     input.CoverTitle,
		CoverType:      input.CoverType,
		Status:         StatusActive,
		UserID:         input.UserID,
		PlanID:         input.PlanID,
		TravelerName:   input.TravelerName,
		TravelerAge:    input.TravelerAge,
		TravelerGender: input.TravelerGender,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		Premium:        input.Premium,
		CreatedAt:      time.Now().UTC(),
	}
	if p.TravelerGender == "" {
		p.TravelerGender = "Male"
	}

	if err := s.repo.Create(ctx, p); err != nil {
		// The debit already committed; refund it so the wallet is whole before
		// the failure surfaces. The derived key keeps a retried reversal
		// idempotent.
		if input.Premium > 0 {
			if _, cerr := s.ledger.Credit(ctx, input.UserID, input.Premium, user.Name,
				"Reversal for "+number, number+"-REV"); cerr != nil {
				s.logger.Error("reverse premium debit",
					slog.String("policy", number),
					slog.Any("error", cerr))
			}
		}
		return Policy{}, err
	}

	if input.Premium > 0 {
		pay := payment.Payment{
			ID:            uuid.NewString(),
			TransactionID: paidWith.Number,
			Gateway:       "ASC360 WALLET",
			Method:        "WALLET",
			Currency:      s.currency,
			TotalAmount:   input.Premium,
			Status:        payment.StatusSuccess,
			UserID:        input.UserID,
			PolicyID:      p.ID,
			Date:          time.Now().UTC(),
		}
		if err := s.payments.Create(ctx, pay); err != nil {
			// The debit committed; the payment row is derived bookkeeping.
			s.logger.Error("record payment for issued policy",
				slog.String("policy", p.Number),
				slog.Any("error", err))
		}
	}

	return p, nil
}

// List returns one page of the operator's policies.
func (s *Service) List(ctx context.Context, userID string, f ListFilter) ([]Policy, int64, error) {
	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.List(ctx, userID, f)
}

// UpdateStatus moves a policy to another lifecycle status.
func (s *Service) UpdateStatus(ctx context.Context, id, userID, status string) (Policy, error) {
	if !ValidStatus(status) {
		return Policy{}, fmt.Errorf("unknown policy status %q", status)
	}
	return s.repo.UpdateStatus(ctx, id, userID, status)
}

// CountByStatus aggregates the operator's policies for the dashboard.
func (s *Service) CountByStatus(ctx context.Context, userID, coverType string) (StatusCounts, error) {
	return s.repo.CountByStatus(ctx, userID, coverType)
}

// TravelersByAge buckets the operator's travelers for the dashboard chart.
func (s *Service) TravelersByAge(ctx context.Context, userID string) ([]AgeGenderBucket, error) {
	return s.repo.TravelersByAge(ctx, userID)
}
