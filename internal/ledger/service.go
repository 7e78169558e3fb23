package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/asc360/operator-portal/pkg/metrics"
)

const (
	// appendAttempts bounds internal retries of the atomic section before the
	// failure is surfaced as ErrStorageUnavailable.
	appendAttempts = 3
	retryBackoff   = 25 * time.Millisecond

	// numberAttempts bounds regeneration when a generated transaction number
	// collides with an existing one.
	numberAttempts = 5

	defaultListLimit = 20
	maxListLimit     = 100
)

// Config carries the business rules the ledger enforces. These are explicit
// construction-time inputs, not ambient schema defaults.
type Config struct {
	// OverdraftLimit is the lowest balance a debit may leave behind. Zero
	// forbids negative balances entirely.
	OverdraftLimit int64
	// NumberPrefix is prepended to generated transaction numbers.
	NumberPrefix string
	// DefaultActor is recorded as createdBy when the caller provides none.
	DefaultActor string
	// Currency labels balance metrics; it never affects arithmetic.
	Currency string
}

func (c Config) withDefaults() Config {
	if c.NumberPrefix == "" {
		c.NumberPrefix = "TXN"
	}
	if c.DefaultActor == "" {
		c.DefaultActor = "System"
	}
	if c.Currency == "" {
		c.Currency = "INR"
	}
	return c
}

// Service maintains the source of truth for each account's spendable balance
// and its append-only audit trail. All mutation funnels through the store's
// atomic Append so the stored balance always equals the signed sum of the
// transaction history.
type Service struct {
	store   Store
	cfg     Config
	numbers *NumberGenerator
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewService builds a ledger service around the given store.
func NewService(store Store, cfg Config, logger *slog.Logger, collector *metrics.Collector) *Service {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		cfg:     cfg,
		numbers: NewNumberGenerator(cfg.NumberPrefix),
		logger:  logger,
		metrics: collector,
	}
}

// Open provisions a ledger exactly once. A positive opening balance is
// recorded as a single seed CREDIT transaction so the reconciliation invariant
// holds from the first read.
func (s *Service) Open(ctx context.Context, accountID string, openingBalance int64) error {
	if accountID == "" {
		return fmt.Errorf("account id is required")
	}
	if openingBalance < 0 {
		return ErrInvalidAmount
	}

	if err := s.store.CreateAccount(ctx, accountID); err != nil {
		return err
	}

	if openingBalance == 0 {
		return nil
	}

	_, err := s.Credit(ctx, accountID, openingBalance, s.cfg.DefaultActor, "Opening balance", "")
	return err
}

// GetBalance returns the current balance and transaction count for an account.
func (s *Service) GetBalance(ctx context.Context, accountID string) (Balance, error) {
	bal, err := s.store.Balance(ctx, accountID)
	if err != nil {
		return Balance{}, err
	}
	s.metrics.SetWalletBalance(accountID, s.cfg.Currency, bal.Amount)
	return bal, nil
}

// ListTransactions returns a filtered page of the account's history, most
// recent first. Ties on timestamp are broken by insertion order.
func (s *Service) ListTransactions(ctx context.Context, accountID string, f Filter) (Page, error) {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.store.Search(ctx, accountID, f)
}

// Credit appends a CREDIT transaction and increments the balance atomically.
// When idempotencyKey names an existing transaction with the same amount the
// stored transaction is returned unchanged; a mismatched reuse fails with
// ErrConflict.
func (s *Service) Credit(ctx context.Context, accountID string, amount int64, createdBy, note, idempotencyKey string) (Transaction, error) {
	return s.post(ctx, accountID, TypeCredit, amount, createdBy, note, idempotencyKey)
}

// Debit appends a DEDUCT transaction and decrements the balance atomically,
// failing with ErrInsufficientBalance when the result would drop below the
// overdraft limit. Idempotency behaves as in Credit.
func (s *Service) Debit(ctx context.Context, accountID string, amount int64, createdBy, note, idempotencyKey string) (Transaction, error) {
	return s.post(ctx, accountID, TypeDeduct, amount, createdBy, note, idempotencyKey)
}

func (s *Service) post(ctx context.Context, accountID string, kind EntryType, amount int64, createdBy, note, idempotencyKey string) (Transaction, error) {
	started := time.Now()
	op := "credit"
	if kind == TypeDeduct {
		op = "debit"
	}

	txn, err := s.postOnce(ctx, accountID, kind, amount, createdBy, note, idempotencyKey)
	outcome := "ok"
	if err != nil {
		outcome = outcomeLabel(err)
	}
	s.metrics.RecordLedgerOp(op, outcome, time.Since(started))
	return txn, err
}

func (s *Service) postOnce(ctx context.Context, accountID string, kind EntryType, amount int64, createdBy, note, idempotencyKey string) (Transaction, error) {
	// Validation happens before any attempt to enter the atomic section.
	if amount <= 0 {
		return Transaction{}, ErrInvalidAmount
	}
	if createdBy == "" {
		createdBy = s.cfg.DefaultActor
	}

	generated := idempotencyKey == ""
	number := idempotencyKey

	for numAttempt := 0; numAttempt < numberAttempts; numAttempt++ {
		if generated {
			var err error
			if number, err = s.numbers.Next(); err != nil {
				return Transaction{}, err
			}
		}

		entry := Entry{Number: number, Amount: amount, Type: kind, CreatedBy: createdBy, Note: note}

		res, err := s.appendWithRetry(ctx, accountID, entry)
		switch {
		case err == nil:
		case generated && errors.Is(err, ErrConflict):
			// A generated number collided with an unrelated transaction.
			continue
		default:
			return Transaction{}, err
		}

		if !res.Created {
			if generated {
				// Same amount and type under a random collision is still not
				// our posting; pick a fresh number.
				continue
			}
			s.logger.Info("idempotent replay",
				slog.String("account_id", accountID),
				slog.String("number", number),
				slog.String("type", string(kind)))
			return res.Transaction, nil
		}

		s.metrics.SetWalletBalance(accountID, s.cfg.Currency, res.NewBalance)
		return res.Transaction, nil
	}

	return Transaction{}, fmt.Errorf("exhausted transaction number attempts: %w", ErrStorageUnavailable)
}

func (s *Service) appendWithRetry(ctx context.Context, accountID string, entry Entry) (AppendResult, error) {
	var lastErr error
	for attempt := 0; attempt < appendAttempts; attempt++ {
		res, err := s.store.Append(ctx, accountID, entry, s.cfg.OverdraftLimit)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrRetryConflict) {
			return AppendResult{}, err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return AppendResult{}, ctx.Err()
		case <-time.After(retryBackoff * time.Duration(attempt+1)):
		}
	}
	s.logger.Warn("ledger append exhausted retries",
		slog.String("account_id", accountID),
		slog.String("number", entry.Number),
		slog.Any("error", lastErr))
	return AppendResult{}, ErrStorageUnavailable
}

// Reconcile recomputes the balance from the full history and compares it to
// the stored value. Mismatches are reported and counted, never repaired.
func (s *Service) Reconcile(ctx context.Context, accountID string) (ReconcileReport, error) {
	report, err := s.store.Reconcile(ctx, accountID)
	if err != nil {
		return ReconcileReport{}, err
	}
	if !report.Consistent {
		s.metrics.RecordReconcileMismatch()
		s.logger.Error("ledger inconsistency detected",
			slog.String("account_id", accountID),
			slog.Int64("stored", report.StoredBalance),
			slog.Int64("computed", report.ComputedBalance))
	}
	return report, nil
}

// AccountIDs lists every provisioned ledger, for the background sweep.
func (s *Service) AccountIDs(ctx context.Context) ([]string, error) {
	return s.store.AccountIDs(ctx)
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "error"
	}
}
