package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/asc360/operator-portal/internal/logging"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewMemoryStore(), Config{NumberPrefix: "ASC360"}, logging.Discard(), nil)
}

func mustReconcile(t *testing.T, svc *Service, accountID string) {
	t.Helper()
	report, err := svc.Reconcile(context.Background(), accountID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !report.Consistent {
		t.Fatalf("ledger inconsistent: stored=%d computed=%d", report.StoredBalance, report.ComputedBalance)
	}
}

func TestOpenSeedsOpeningBalance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Open(ctx, "op-1", 5_000); err != nil {
		t.Fatalf("open: %v", err)
	}

	bal, err := svc.GetBalance(ctx, "op-1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal.Amount != 5_000 {
		t.Fatalf("expected opening balance 5000, got %d", bal.Amount)
	}
	if bal.TransactionCount != 1 {
		t.Fatalf("expected a single seed transaction, got %d", bal.TransactionCount)
	}
	mustReconcile(t, svc, "op-1")
}

func TestOpenIsOneShot(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Open(ctx, "op-1", 1_000); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := svc.Open(ctx, "op-1", 1_000); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}

	bal, err := svc.GetBalance(ctx, "op-1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal.Amount != 1_000 {
		t.Fatalf("double open changed balance: %d", bal.Amount)
	}
}

func TestGetBalanceUnknownAccount(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.GetBalance(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreditDebitSequenceStaysConsistent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Open(ctx, "op-1", 0); err != nil {
		t.Fatalf("open: %v", err)
	}

	steps := []struct {
		kind   EntryType
		amount int64
	}{
		{TypeCredit, 10_000},
		{TypeDeduct, 2_500},
		{TypeCredit, 60},
		{TypeDeduct, 7_500},
		{TypeCredit, 940},
	}

	var want int64
	for i, step := range steps {
		var err error
		if step.kind == TypeCredit {
			_, err = svc.Credit(ctx, "op-1", step.amount, "Admin", "", "")
		} else {
			_, err = svc.Debit(ctx, "op-1", step.amount, "Admin", "", "")
		}
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		want += step.kind.Signed(step.amount)
		mustReconcile(t, svc, "op-1")
	}

	bal, err := svc.GetBalance(ctx, "op-1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal.Amount != want {
		t.Fatalf("expected balance %d, got %d", want, bal.Amount)
	}
}

func TestCreditRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.Open(ctx, "op-1", 100); err != nil {
		t.Fatalf("open: %v", err)
	}

	for _, amount := range []int64{0, -50} {
		if _, err := svc.Credit(ctx, "op-1", amount, "Admin", "", ""); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}

	bal, _ := svc.GetBalance(ctx, "op-1")
	if bal.Amount != 100 || bal.TransactionCount != 1 {
		t.Fatalf("rejected credit mutated ledger: balance=%d count=%d", bal.Amount, bal.TransactionCount)
	}
}

func TestDebitBelowZeroRejected(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.Open(ctx, "op-1", 60); err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := svc.Debit(ctx, "op-1", 100, "Admin", "", ""); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	bal, _ := svc.GetBalance(ctx, "op-1")
	if bal.Amount != 60 {
		t.Fatalf("failed debit changed balance: %d", bal.Amount)
	}
	if bal.TransactionCount != 1 {
		t.Fatalf("failed debit appended a transaction: count=%d", bal.TransactionCount)
	}
	mustReconcile(t, svc, "op-1")
}

func TestOverdraftLimitAllowsConfiguredFloor(t *testing.T) {
	svc := NewService(NewMemoryStore(), Config{NumberPrefix: "ASC360", OverdraftLimit: -500}, logging.Discard(), nil)
	ctx := context.Background()
	if err := svc.Open(ctx, "op-1", 100); err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := svc.Debit(ctx, "op-1", 600, "Admin", "", ""); err != nil {
		t.Fatalf("debit within overdraft: %v", err)
	}
	if _, err := svc.Debit(ctx, "op-1", 1, "Admin", "", ""); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance past the floor, got %v", err)
	}
	mustReconcile(t, svc, "op-1")
}

func TestIdempotentReplay(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.Open(ctx, "op-1", 0); err != nil {
		t.Fatalf("open: %v", err)
	}

	first, err := svc.Credit(ctx, "op-1", 100, "Admin", "top-up", "X")
	if err != nil {
		t.Fatalf("first credit: %v", err)
	}
	second, err := svc.Credit(ctx, "op-1", 100, "Admin", "top-up", "X")
	if err != nil {
		t.Fatalf("replayed credit: %v", err)
	}

	if first.Number != "X" || second.Number != "X" {
		t.Fatalf("expected transaction number X, got %q and %q", first.Number, second.Number)
	}
	if first.ID != second.ID {
		t.Fatalf("replay created a second transaction: %s vs %s", first.ID, second.ID)
	}

	bal, _ := svc.GetBalance(ctx, "op-1")
	if bal.Amount != 100 {
		t.Fatalf("replay double-applied: balance=%d", bal.Amount)
	}
	if bal.TransactionCount != 1 {
		t.Fatalf("replay appended again: count=%d", bal.TransactionCount)
	}
}

func TestReplayWithDifferentAmountConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.Open(ctx, "op-1", 0); err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := svc.Credit(ctx, "op-1", 100, "Admin", "", "X"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := svc.Credit(ctx, "op-1", 200, "Admin", "", "X"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := svc.Debit(ctx, "op-1", 100, "Admin", "", "X"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on type mismatch, got %v", err)
	}

	bal, _ := svc.GetBalance(ctx, "op-1")
	if bal.Amount != 100 {
		t.Fatalf("conflicting replay mutated balance: %d", bal.Amount)
	}
	mustReconcile(t, svc, "op-1")
}

func TestConcurrentCreditsAllApply(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.Open(ctx, "op-1", 1_000); err != nil {
		t.Fatalf("open: %v", err)
	}

	const workers = 10
	const amount = int64(50)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.Credit(ctx, "op-1", amount, "Admin", "", fmt.Sprintf("race-%d", i)); err != nil {
				t.Errorf("credit %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	bal, err := svc.GetBalance(ctx, "op-1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if want := int64(1_000) + workers*amount; bal.Amount != want {
		t.Fatalf("lost update: expected %d, got %d", want, bal.Amount)
	}

	page, err := svc.ListTransactions(ctx, "op-1", Filter{Search: "race", Limit: workers * 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != workers {
		t.Fatalf("expected %d distinct transactions, got %d", workers, page.Total)
	}
	seen := make(map[string]bool)
	for _, txn := range page.Items {
		if seen[txn.Number] {
			t.Fatalf("duplicate transaction number %s", txn.Number)
		}
		seen[txn.Number] = true
	}
	mustReconcile(t, svc, "op-1")
}

func TestHistoryIsAppendOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.Open(ctx, "op-1", 500); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := svc.Credit(ctx, "op-1", 250, "Admin", "first", ""); err != nil {
		t.Fatalf("credit: %v", err)
	}

	before, err := svc.ListTransactions(ctx, "op-1", Filter{Limit: 100})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if _, err := svc.Debit(ctx, "op-1", 100, "Admin", "later", ""); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if _, err := svc.Debit(ctx, "op-1", 10_000, "Admin", "", ""); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	after, err := svc.ListTransactions(ctx, "op-1", Filter{Limit: 100})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(after.Items) != len(before.Items)+1 {
		t.Fatalf("expected history to grow by one, before=%d after=%d", len(before.Items), len(after.Items))
	}
	// Newest-first listing: the earlier entries must be byte-for-byte intact.
	for i, prev := range before.Items {
		got := after.Items[i+1]
		if got != prev {
			t.Fatalf("transaction %d mutated: %+v vs %+v", i, prev, got)
		}
	}
}

func TestListTransactionsFilterAndPagination(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.Open(ctx, "op-1", 0); err != nil {
		t.Fatalf("open: %v", err)
	}

	adminKeys := map[string]bool{}
	for i := 0; i < 25; i++ {
		actor := "System"
		if i%9 == 0 { // entries 0, 9, 18
			actor = "Admin"
		}
		key := fmt.Sprintf("txn-%02d", i)
		if actor == "Admin" {
			adminKeys[key] = true
		}
		if _, err := svc.Credit(ctx, "op-1", 10, actor, "", key); err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
	}

	page, err := svc.ListTransactions(ctx, "op-1", Filter{Search: "admin", Offset: 0, Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("expected 3 matches, got %d", page.Total)
	}
	if len(page.Items) != 3 {
		t.Fatalf("expected 3 items on the first page, got %d", len(page.Items))
	}
	for _, txn := range page.Items {
		if !adminKeys[txn.Number] {
			t.Fatalf("unexpected match %s", txn.Number)
		}
	}
	// Most recent first.
	for i := 1; i < len(page.Items); i++ {
		if page.Items[i].Seq > page.Items[i-1].Seq {
			t.Fatalf("listing not newest-first at index %d", i)
		}
	}

	// Unfiltered pagination across the whole set.
	pageTwo, err := svc.ListTransactions(ctx, "op-1", Filter{Offset: 20, Limit: 10})
	if err != nil {
		t.Fatalf("list page two: %v", err)
	}
	if pageTwo.Total != 25 {
		t.Fatalf("expected total 25, got %d", pageTwo.Total)
	}
	if len(pageTwo.Items) != 5 {
		t.Fatalf("expected 5 trailing items, got %d", len(pageTwo.Items))
	}
}

func TestReconcileReportsCorruption(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, Config{NumberPrefix: "ASC360"}, logging.Discard(), nil)
	ctx := context.Background()
	if err := svc.Open(ctx, "op-1", 5_000); err != nil {
		t.Fatalf("open: %v", err)
	}

	CorruptBalance(store, "op-1", 9_999)

	report, err := svc.Reconcile(ctx, "op-1")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if report.Consistent {
		t.Fatal("expected inconsistency to be reported")
	}
	if report.StoredBalance != 9_999 || report.ComputedBalance != 5_000 {
		t.Fatalf("unexpected report: %+v", report)
	}

	// Reconcile never repairs.
	bal, _ := svc.GetBalance(ctx, "op-1")
	if bal.Amount != 9_999 {
		t.Fatalf("reconcile mutated stored balance: %d", bal.Amount)
	}
}

func TestTransactionNumbersAreGloballyUnique(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Open(ctx, "op-a", 1_000); err != nil {
		t.Fatalf("open op-a: %v", err)
	}
	if err := svc.Open(ctx, "op-b", 1_000); err != nil {
		t.Fatalf("open op-b: %v", err)
	}

	if _, err := svc.Credit(ctx, "op-a", 100, "A", "top-up", "X"); err != nil {
		t.Fatalf("credit op-a: %v", err)
	}

	// The same key on another ledger is a reuse, never a replay, even with
	// identical amount and type.
	if _, err := svc.Credit(ctx, "op-b", 100, "B", "top-up", "X"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for cross-account key reuse, got %v", err)
	}

	bal, err := svc.GetBalance(ctx, "op-b")
	if err != nil {
		t.Fatalf("balance op-b: %v", err)
	}
	if bal.Amount != 1_000 {
		t.Fatalf("rejected posting must not move op-b's balance, got %d", bal.Amount)
	}

	page, err := svc.ListTransactions(ctx, "op-b", Filter{})
	if err != nil {
		t.Fatalf("list op-b: %v", err)
	}
	for _, txn := range page.Items {
		if txn.Number == "X" {
			t.Fatal("number X must not appear on op-b's ledger")
		}
	}
	mustReconcile(t, svc, "op-a")
	mustReconcile(t, svc, "op-b")
}
