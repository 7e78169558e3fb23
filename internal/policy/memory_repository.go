package policy

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

// NewMemoryRepository constructs an in-memory repository for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{policies: make(map[string]Policy)}
}

func (r *memoryRepository) Create(_ context.Context, p Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies[p.ID] = p
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id, userID string) (Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.policies[id]
	if !ok || p.UserID != userID {
		return Policy{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepository) forUser(userID string) []Policy {
	var out []Policy
	for _, p := range r.policies {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Number > out[j].Number
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *memoryRepository) List(_ context.Context, userID string, f ListFilter) ([]Policy, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(f.Search)
	var matched []Policy
	for _, p := range r.forUser(userID) {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.CoverType != "" && p.CoverType != f.CoverType {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.CoverTitle), needle) &&
			!strings.Contains(strings.ToLower(p.Number), needle) {
			continue
		}
		matched = append(matched, p)
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

func (r *memoryRepository) UpdateStatus(_ context.Context, id, userID, status string) (Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.policies[id]
	if !ok || p.UserID != userID {
		return Policy{}, ErrNotFound
	}
	p.Status = status
	r.policies[id] = p
	return p, nil
}

func (r *memoryRepository) CountByStatus(_ context.Context, userID, coverType string) (StatusCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var counts StatusCounts
	for _, p := range r.forUser(userID) {
		if coverType != "" && p.CoverType != coverType {
			continue
		}
		switch p.Status {
		case StatusActive:
			counts.Active++
		case StatusYetToActive:
			counts.YetToActive++
		case StatusMatured:
			counts.Matured++
		case StatusPending:
			counts.Pending++
		}
	}
	return counts, nil
}

func (r *memoryRepository) TravelersByAge(_ context.Context, userID string) ([]AgeGenderBucket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type key struct {
		group  int
		gender string
	}
	counts := make(map[key]int64)
	for _, p := range r.forUser(userID) {
		counts[key{p.TravelerAge / 10, p.TravelerGender}]++
	}

	var buckets []AgeGenderBucket
	for k, n := range counts {
		buckets = append(buckets, AgeGenderBucket{AgeGroup: k.group, Gender: k.gender, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].AgeGroup == buckets[j].AgeGroup {
			return buckets[i].Gender < buckets[j].Gender
		}
		return buckets[i].AgeGroup < buckets[j].AgeGroup
	})
	return buckets, nil
}
