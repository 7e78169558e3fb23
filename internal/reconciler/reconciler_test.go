package reconciler

import (
	"context"
	"testing"

	"github.com/asc360/operator-portal/internal/ledger"
	"github.com/asc360/operator-portal/internal/logging"
)

func TestSweepReportsDriftWithoutRepairing(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	svc := ledger.NewService(store, ledger.Config{NumberPrefix: "ASC360"}, logging.Discard(), nil)

	if err := svc.Open(ctx, "acct-1", 5_000); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := svc.Open(ctx, "acct-2", 5_000); err != nil {
		t.Fatalf("open: %v", err)
	}
	ledger.CorruptBalance(store, "acct-2", 9_999)

	r := New(svc, "@every 1h", logging.Discard())
	r.SweepOnce()

	// Drift is reported, never written back.
	report, err := svc.Reconcile(ctx, "acct-2")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if report.Consistent {
		t.Fatal("expected acct-2 to stay inconsistent after sweep")
	}
	if report.StoredBalance != 9_999 || report.ComputedBalance != 5_000 {
		t.Fatalf("sweep must not repair balances: %+v", report)
	}

	clean, err := svc.Reconcile(ctx, "acct-1")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !clean.Consistent {
		t.Fatalf("acct-1 should be consistent: %+v", clean)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	svc := ledger.NewService(ledger.NewMemoryStore(), ledger.Config{}, logging.Discard(), nil)
	r := New(svc, "not-a-schedule", logging.Discard())
	if err := r.Start(); err == nil {
		t.Fatal("expected invalid cron spec to be rejected")
	}
}
