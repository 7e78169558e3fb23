package payment

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	payments []Payment
}

// NewMemoryRepository constructs an in-memory repository for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) Create(_ context.Context, p Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments = append(r.payments, p)
	return nil
}

func (r *memoryRepository) forUser(userID string) []Payment {
	var out []Payment
	for _, p := range r.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (r *memoryRepository) List(_ context.Context, userID string, f ListFilter) ([]Payment, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(f.Search)
	var matched []Payment
	for _, p := range r.forUser(userID) {
		if needle == "" ||
			strings.Contains(strings.ToLower(p.TransactionID), needle) ||
			strings.Contains(strings.ToLower(p.Gateway), needle) ||
			strings.Contains(strings.ToLower(p.Status), needle) {
			matched = append(matched, p)
		}
	}

	total := int64(len(matched))
	start := f.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + f.Limit
	if f.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *memoryRepository) Summary(_ context.Context, userID string) ([]StatusSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byStatus := make(map[string]*StatusSummary)
	for _, p := range r.forUser(userID) {
		s, ok := byStatus[p.Status]
		if !ok {
			s = &StatusSummary{Status: p.Status}
			byStatus[p.Status] = s
		}
		s.Count++
		s.Total += p.TotalAmount
	}

	var summaries []StatusSummary
	for _, s := range byStatus {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Status < summaries[j].Status })
	return summaries, nil
}

func (r *memoryRepository) Recent(_ context.Context, userID string, n int) ([]Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payments := r.forUser(userID)
	if len(payments) > n {
		payments = payments[:n]
	}
	return payments, nil
}
