package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/asc360/operator-portal/internal/identity"
	"github.com/asc360/operator-portal/internal/ledger"
	"github.com/asc360/operator-portal/internal/logging"
	"github.com/asc360/operator-portal/internal/notification"
)

func newTestWallet(t *testing.T) (*Service, identity.User) {
	t.Helper()
	logger := logging.Discard()
	users := identity.NewService(identity.NewMemoryRepository())
	ledgerSvc := ledger.NewService(ledger.NewMemoryStore(), ledger.Config{NumberPrefix: "ASC360"}, logger, nil)
	svc := NewService(ledgerSvc, users, notification.NewLoggerNotifier(logger), 5_000, "INR", logger)

	user, err := users.Register(context.Background(), identity.RegisterInput{
		Name:     "Test Operator",
		Email:    "op@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Provision(context.Background(), user.ID); err != nil {
		t.Fatalf("provision: %v", err)
	}
	return svc, user
}

func TestProvisionSeedsOpeningBalance(t *testing.T) {
	svc, user := newTestWallet(t)

	overview, err := svc.Overview(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.Balance.Amount != 5_000 {
		t.Fatalf("expected opening balance 5000, got %d", overview.Balance.Amount)
	}
	if len(overview.Transactions) != 1 {
		t.Fatalf("expected one seed transaction, got %d", len(overview.Transactions))
	}
	if overview.Transactions[0].Type != ledger.TypeCredit {
		t.Fatalf("seed transaction should be a CREDIT, got %s", overview.Transactions[0].Type)
	}
}

func TestCreditRecordsOperatorAsActor(t *testing.T) {
	svc, user := newTestWallet(t)
	ctx := context.Background()

	txn, balance, err := svc.Credit(ctx, user.ID, 2_500, "", "")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if txn.CreatedBy != "Test Operator" {
		t.Fatalf("createdBy should come from the resolved identity, got %q", txn.CreatedBy)
	}
	if txn.Note != "Balance added" {
		t.Fatalf("expected default note, got %q", txn.Note)
	}
	if balance.Amount != 7_500 {
		t.Fatalf("expected balance 7500, got %d", balance.Amount)
	}

	report, err := svc.Reconcile(ctx, user.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !report.Consistent {
		t.Fatalf("ledger inconsistent after credit: %+v", report)
	}
}

func TestCreditReplayWithIdempotencyKey(t *testing.T) {
	svc, user := newTestWallet(t)
	ctx := context.Background()

	first, _, err := svc.Credit(ctx, user.ID, 100, "top-up", "REQ-1")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	second, balance, err := svc.Credit(ctx, user.ID, 100, "top-up", "REQ-1")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if first.ID != second.ID {
		t.Fatal("replay created a new transaction")
	}
	if balance.Amount != 5_100 {
		t.Fatalf("replay double-applied: balance=%d", balance.Amount)
	}
}

func TestTransactionsPaging(t *testing.T) {
	svc, user := newTestWallet(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		if _, _, err := svc.Credit(ctx, user.ID, 10, "", ""); err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
	}

	// 7 credits plus the seed transaction.
	page, balance, err := svc.Transactions(ctx, user.ID, "", 2, 5)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if page.Total != 8 {
		t.Fatalf("expected total 8, got %d", page.Total)
	}
	if len(page.Items) != 3 {
		t.Fatalf("expected 3 items on page 2, got %d", len(page.Items))
	}
	if balance.Amount != 5_070 {
		t.Fatalf("expected balance 5070, got %d", balance.Amount)
	}
}

func TestOverviewUnknownUser(t *testing.T) {
	svc, _ := newTestWallet(t)
	if _, err := svc.Overview(context.Background(), "missing"); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected identity.ErrNotFound, got %v", err)
	}
}
