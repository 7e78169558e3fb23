package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryAccount struct {
	// mu serializes the read-modify-write of balance plus history for this
	// account only; accounts never block each other.
	mu       sync.Mutex
	balance  int64
	txns     []Transaction
	byNumber map[string]int
	seq      int64
}

type memoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*memoryAccount
	// numbers maps every transaction number to its owning account. Numbers
	// are globally unique, not merely unique per ledger.
	numbers map[string]string
}

// NewMemoryStore creates a concurrency-safe in-memory store, used in tests and
// for dev mode without Postgres.
func NewMemoryStore() Store {
	return &memoryStore{
		accounts: make(map[string]*memoryAccount),
		numbers:  make(map[string]string),
	}
}

func (s *memoryStore) CreateAccount(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[accountID]; exists {
		return ErrAccountExists
	}
	s.accounts[accountID] = &memoryAccount{byNumber: make(map[string]int)}
	return nil
}

func (s *memoryStore) account(accountID string) (*memoryAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	return acct, nil
}

func (s *memoryStore) Balance(_ context.Context, accountID string) (Balance, error) {
	acct, err := s.account(accountID)
	if err != nil {
		return Balance{}, err
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()
	return Balance{
		AccountID:        accountID,
		Amount:           acct.balance,
		TransactionCount: int64(len(acct.txns)),
		AsOf:             time.Now().UTC(),
	}, nil
}

func (s *memoryStore) Search(_ context.Context, accountID string, f Filter) (Page, error) {
	acct, err := s.account(accountID)
	if err != nil {
		return Page{}, err
	}
	acct.mu.Lock()
	matched := make([]Transaction, 0, len(acct.txns))
	needle := strings.ToLower(f.Search)
	for _, t := range acct.txns {
		if needle == "" || matches(t, needle) {
			matched = append(matched, t)
		}
	}
	acct.mu.Unlock()

	// Most recent first; insertion order breaks timestamp ties.
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].Seq > matched[j].Seq
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := f.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + f.Limit
	if f.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return Page{Items: matched[start:end], Total: total}, nil
}

func matches(t Transaction, needle string) bool {
	return strings.Contains(strings.ToLower(t.Number), needle) ||
		strings.Contains(strings.ToLower(string(t.Type)), needle) ||
		strings.Contains(strings.ToLower(t.CreatedBy), needle)
}

func (s *memoryStore) Append(_ context.Context, accountID string, e Entry, minBalance int64) (AppendResult, error) {
	if e.Amount <= 0 {
		return AppendResult{}, ErrInvalidAmount
	}
	if !e.Type.Valid() {
		return AppendResult{}, ErrInvalidAmount
	}

	acct, err := s.account(accountID)
	if err != nil {
		return AppendResult{}, err
	}

	acct.mu.Lock()
	defer acct.mu.Unlock()

	if idx, exists := acct.byNumber[e.Number]; exists {
		existing := acct.txns[idx]
		if existing.Amount != e.Amount || existing.Type != e.Type {
			return AppendResult{}, ErrConflict
		}
		return AppendResult{Transaction: existing, NewBalance: acct.balance, Created: false}, nil
	}

	next := acct.balance + e.Type.Signed(e.Amount)
	if e.Type == TypeDeduct && next < minBalance {
		return AppendResult{}, ErrInsufficientBalance
	}

	// The local byNumber check above already handled same-account reuse, so a
	// taken number here belongs to another ledger and is never a replay.
	s.mu.Lock()
	if _, taken := s.numbers[e.Number]; taken {
		s.mu.Unlock()
		return AppendResult{}, ErrConflict
	}
	s.numbers[e.Number] = accountID
	s.mu.Unlock()

	acct.seq++
	txn := Transaction{
		ID:        uuid.NewString(),
		Number:    e.Number,
		Amount:    e.Amount,
		Type:      e.Type,
		CreatedBy: e.CreatedBy,
		Note:      e.Note,
		Seq:       acct.seq,
		CreatedAt: time.Now().UTC(),
	}
	acct.txns = append(acct.txns, txn)
	acct.byNumber[e.Number] = len(acct.txns) - 1
	acct.balance = next

	return AppendResult{Transaction: txn, NewBalance: next, Created: true}, nil
}

func (s *memoryStore) Reconcile(_ context.Context, accountID string) (ReconcileReport, error) {
	acct, err := s.account(accountID)
	if err != nil {
		return ReconcileReport{}, err
	}
	acct.mu.Lock()
	defer acct.mu.Unlock()

	var computed int64
	for _, t := range acct.txns {
		computed += t.Type.Signed(t.Amount)
	}
	return ReconcileReport{
		AccountID:        accountID,
		Consistent:       computed == acct.balance,
		ComputedBalance:  computed,
		StoredBalance:    acct.balance,
		TransactionCount: int64(len(acct.txns)),
	}, nil
}

func (s *memoryStore) AccountIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
