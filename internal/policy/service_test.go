package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/asc360/operator-portal/internal/identity"
	"github.com/asc360/operator-portal/internal/ledger"
	"github.com/asc360/operator-portal/internal/logging"
	"github.com/asc360/operator-portal/internal/payment"
	"github.com/asc360/operator-portal/internal/plan"
)

type fixture struct {
	service  *Service
	ledger   *ledger.Service
	payments payment.Repository
	plans    plan.Repository
	user     identity.User
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger := logging.Discard()
	users := identity.NewService(identity.NewMemoryRepository())
	ledgerSvc := ledger.NewService(ledger.NewMemoryStore(), ledger.Config{NumberPrefix: "ASC360"}, logger, nil)
	plans := plan.NewMemoryRepository()
	payments := payment.NewMemoryRepository()

	user, err := users.Register(context.Background(), identity.RegisterInput{
		Name:     "Test Operator",
		Email:    "op@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := ledgerSvc.Open(context.Background(), user.ID, 5_000); err != nil {
		t.Fatalf("open wallet: %v", err)
	}

	svc := NewService(NewMemoryRepository(), plans, payments, ledgerSvc, users, "ASC360", "INR", logger)
	return fixture{service: svc, ledger: ledgerSvc, payments: payments, plans: plans, user: user}
}

func TestIssueDebitsPremiumOnce(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	p, err := fx.service.Issue(ctx, IssueInput{
		UserID:       fx.user.ID,
		CoverTitle:   "Himalayan Trek Cover",
		CoverType:    CoverDomestic,
		TravelerName: "Asha Rao",
		TravelerAge:  34,
		StartDate:    time.Now(),
		EndDate:      time.Now().Add(72 * time.Hour),
		Premium:      1_200,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if p.Number == "" || p.Status != StatusActive {
		t.Fatalf("unexpected policy %+v", p)
	}

	bal, err := fx.ledger.GetBalance(ctx, fx.user.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Amount != 3_800 {
		t.Fatalf("expected balance 3800 after premium debit, got %d", bal.Amount)
	}

	pays, total, err := fx.payments.List(ctx, fx.user.ID, payment.ListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("payments: %v", err)
	}
	if total != 1 || len(pays) != 1 {
		t.Fatalf("expected exactly one payment, got %d", total)
	}
	if pays[0].TotalAmount != 1_200 || pays[0].Status != payment.StatusSuccess {
		t.Fatalf("unexpected payment %+v", pays[0])
	}
	if pays[0].PolicyID != p.ID {
		t.Fatalf("payment not linked to policy: %+v", pays[0])
	}
}

func TestIssueUsesPlanPrice(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	pl := plan.Plan{
		ID:     "plan-1",
		Title:  "Everest Base Camp",
		Scope:  CoverInternational,
		Price:  2_000,
		Active: true,
	}
	if err := fx.plans.Create(ctx, pl); err != nil {
		t.Fatalf("create plan: %v", err)
	}

	p, err := fx.service.Issue(ctx, IssueInput{
		UserID:       fx.user.ID,
		PlanID:       pl.ID,
		TravelerName: "Ravi Iyer",
		TravelerAge:  41,
		Premium:      5, // ignored; the plan price is authoritative
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if p.Premium != 2_000 || p.CoverTitle != "Everest Base Camp" || p.CoverType != CoverInternational {
		t.Fatalf("plan fields not applied: %+v", p)
	}

	bal, err := fx.ledger.GetBalance(ctx, fx.user.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Amount != 3_000 {
		t.Fatalf("expected balance 3000, got %d", bal.Amount)
	}
}

func TestIssueInsufficientBalanceLeavesNothingBehind(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.service.Issue(ctx, IssueInput{
		UserID:       fx.user.ID,
		CoverTitle:   "Annapurna Circuit",
		CoverType:    CoverDomestic,
		TravelerName: "Meera Shah",
		TravelerAge:  29,
		Premium:      9_000,
	})
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	items, total, err := fx.service.List(ctx, fx.user.ID, ListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Fatalf("failed issue must not record a policy, got %d", total)
	}
	_, payTotal, err := fx.payments.List(ctx, fx.user.ID, payment.ListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("payments: %v", err)
	}
	if payTotal != 0 {
		t.Fatalf("failed issue must not record a payment, got %d", payTotal)
	}

	bal, err := fx.ledger.GetBalance(ctx, fx.user.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Amount != 5_000 {
		t.Fatalf("balance changed on failed issue: %d", bal.Amount)
	}
}

type brokenRepository struct {
	Repository
}

func (brokenRepository) Create(context.Context, Policy) error {
	return errors.New("storage offline")
}

func TestIssueRefundsPremiumWhenPolicyWriteFails(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.service.repo = brokenRepository{Repository: fx.service.repo}

	_, err := fx.service.Issue(ctx, IssueInput{
		UserID:       fx.user.ID,
		CoverTitle:   "Coastal Kayak Cover",
		CoverType:    CoverDomestic,
		TravelerName: "Nisha Gupta",
		TravelerAge:  27,
		Premium:      1_500,
	})
	if err == nil {
		t.Fatal("expected the storage failure to surface")
	}

	bal, err := fx.ledger.GetBalance(ctx, fx.user.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Amount != 5_000 {
		t.Fatalf("premium not refunded after failed issue, balance %d", bal.Amount)
	}

	report, err := fx.ledger.Reconcile(ctx, fx.user.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !report.Consistent {
		t.Fatalf("ledger inconsistent after refund: %+v", report)
	}

	_, payTotal, err := fx.payments.List(ctx, fx.user.ID, payment.ListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("payments: %v", err)
	}
	if payTotal != 0 {
		t.Fatalf("failed issue must not record a payment, got %d", payTotal)
	}
}

func TestIssueRejectsUnknownCoverType(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.service.Issue(context.Background(), IssueInput{
		UserID:       fx.user.ID,
		CoverTitle:   "Mystery Cover",
		CoverType:    "Orbital",
		TravelerName: "X",
		Premium:      100,
	})
	if err == nil {
		t.Fatal("expected cover type validation error")
	}
}

func TestUpdateStatusValidatesTransition(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	p, err := fx.service.Issue(ctx, IssueInput{
		UserID:       fx.user.ID,
		CoverTitle:   "Weekend Trek",
		CoverType:    CoverDomestic,
		TravelerName: "Dev Patel",
		TravelerAge:  22,
		Premium:      500,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	updated, err := fx.service.UpdateStatus(ctx, p.ID, fx.user.ID, StatusMatured)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != StatusMatured {
		t.Fatalf("expected status %q, got %q", StatusMatured, updated.Status)
	}

	if _, err := fx.service.UpdateStatus(ctx, p.ID, fx.user.ID, "Cancelled"); err == nil {
		t.Fatal("expected unknown status to be rejected")
	}
	if _, err := fx.service.UpdateStatus(ctx, p.ID, "someone-else", StatusActive); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign policy, got %v", err)
	}
}

func TestCountByStatusAndAgeBuckets(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	ages := []int{8, 23, 27, 34, 61}
	for _, age := range ages {
		if _, err := fx.service.Issue(ctx, IssueInput{
			UserID:       fx.user.ID,
			CoverTitle:   "Group Trek",
			CoverType:    CoverDomestic,
			TravelerName: "Traveler",
			TravelerAge:  age,
			Premium:      100,
		}); err != nil {
			t.Fatalf("issue age %d: %v", age, err)
		}
	}

	counts, err := fx.service.CountByStatus(ctx, fx.user.ID, "")
	if err != nil {
		t.Fatalf("count by status: %v", err)
	}
	if counts.Active != 5 || counts.Total() != 5 {
		t.Fatalf("unexpected counts %+v", counts)
	}

	buckets, err := fx.service.TravelersByAge(ctx, fx.user.ID)
	if err != nil {
		t.Fatalf("travelers by age: %v", err)
	}
	byGroup := map[int]int64{}
	for _, b := range buckets {
		byGroup[b.AgeGroup] += b.Count
	}
	// FLOOR(age/10): 8 -> 0, 23 and 27 -> 2, 34 -> 3, 61 -> 6.
	if byGroup[0] != 1 || byGroup[2] != 2 || byGroup[3] != 1 || byGroup[6] != 1 {
		t.Fatalf("unexpected age buckets %+v", buckets)
	}
}
