package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no ledger exists for the requested account.
	ErrNotFound = errors.New("ledger not found")

	// ErrAccountExists indicates a ledger was already provisioned for the account.
	ErrAccountExists = errors.New("ledger already exists")

	// ErrInvalidAmount occurs when a posting carries a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientBalance occurs when a debit would leave the balance below
	// the configured overdraft limit.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrConflict indicates an idempotency key was reused with a different
	// amount or type. The operation is rejected, never silently resolved.
	ErrConflict = errors.New("transaction number reused with different details")

	// ErrStorageUnavailable is surfaced after the store repeatedly failed to
	// complete an atomic posting. Callers may retry with the same key.
	ErrStorageUnavailable = errors.New("ledger storage unavailable")

	// ErrRetryConflict is returned by stores when a concurrent update beat the
	// current attempt. The service retries a bounded number of times before
	// surfacing ErrStorageUnavailable.
	ErrRetryConflict = errors.New("concurrent ledger update")
)

// EntryType distinguishes the two signed directions of a ledger posting.
type EntryType string

const (
	// TypeCredit increases the balance.
	TypeCredit EntryType = "CREDIT"
	// TypeDeduct decreases the balance.
	TypeDeduct EntryType = "DEDUCT"
)

// Signed returns the amount carried with the sign implied by the entry type.
// Stored amounts are always positive magnitudes.
func (t EntryType) Signed(amount int64) int64 {
	if t == TypeDeduct {
		return -amount
	}
	return amount
}

// Valid reports whether the entry type is one of the two known directions.
func (t EntryType) Valid() bool {
	return t == TypeCredit || t == TypeDeduct
}

// Transaction is a single immutable entry in an account's history. Entries are
// only ever appended; Seq is strictly increasing per account and defines the
// audit order when wall-clock timestamps tie.
type Transaction struct {
	ID        string    `json:"id"`
	Number    string    `json:"transactionNumber"`
	Amount    int64     `json:"amount"`
	Type      EntryType `json:"type"`
	CreatedBy string    `json:"createdBy"`
	Note      string    `json:"note"`
	Seq       int64     `json:"-"`
	CreatedAt time.Time `json:"date"`
}

// Balance is a point-in-time read of an account's spendable funds.
type Balance struct {
	AccountID        string    `json:"accountId"`
	Amount           int64     `json:"balance"`
	TransactionCount int64     `json:"asOfTransactionCount"`
	AsOf             time.Time `json:"asOf"`
}

// ReconcileReport compares the stored balance to the balance recomputed from
// the full transaction history. A mismatch is reported, never repaired.
type ReconcileReport struct {
	AccountID        string `json:"accountId"`
	Consistent       bool   `json:"consistent"`
	ComputedBalance  int64  `json:"computedBalance"`
	StoredBalance    int64  `json:"storedBalance"`
	TransactionCount int64  `json:"transactionCount"`
}

// Filter narrows and pages a transaction listing. Search matches
// case-insensitive substrings of number, type and createdBy.
type Filter struct {
	Search string
	Offset int
	Limit  int
}

// Page holds one page of a filtered listing along with the filtered total.
type Page struct {
	Items []Transaction
	Total int64
}

// Entry is a validated posting handed to the store for atomic application.
type Entry struct {
	Number    string
	Amount    int64
	Type      EntryType
	CreatedBy string
	Note      string
}

// AppendResult reports the outcome of an atomic posting. Created is false when
// the entry's number matched an existing transaction and the stored one was
// returned unchanged (idempotent replay).
type AppendResult struct {
	Transaction Transaction
	NewBalance  int64
	Created     bool
}

// Store is the durable backend contract. Append must apply the balance update
// and the transaction insert as one indivisible unit per account, enforce the
// minBalance floor for debits, and detect number reuse inside the same atomic
// section.
type Store interface {
	CreateAccount(ctx context.Context, accountID string) error
	Balance(ctx context.Context, accountID string) (Balance, error)
	Search(ctx context.Context, accountID string, f Filter) (Page, error)
	Append(ctx context.Context, accountID string, e Entry, minBalance int64) (AppendResult, error)
	Reconcile(ctx context.Context, accountID string) (ReconcileReport, error)
	AccountIDs(ctx context.Context) ([]string, error)
}
