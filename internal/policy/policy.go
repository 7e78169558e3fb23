package policy

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the policy does not exist or belongs to another operator.
var ErrNotFound = errors.New("policy not found")

// Policy lifecycle statuses.
const (
	StatusActive      = "Active"
	StatusYetToActive = "Yet to Active"
	StatusMatured     = "Matured"
	StatusPending     = "Pending"
)

// Cover scopes.
const (
	CoverDomestic      = "Domestic"
	CoverInternational = "International"
)

// ValidStatus reports whether s is a known policy status.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusYetToActive, StatusMatured, StatusPending:
		return true
	default:
		return false
	}
}

// Policy is an issued insurance cover. Premium is in minor units.
type Policy struct {
	ID             string    `json:"id"`
	Number         string    `json:"policyNumber"`
	CoverTitle     string    `json:"coverTitle"`
	CoverType      string    `json:"coverType"`
	Status         string    `json:"status"`
	UserID         string    `json:"userId"`
	PlanID         string    `json:"planId,omitempty"`
	TravelerName   string    `json:"travelerName"`
	TravelerAge    int       `json:"travelerAge"`
	TravelerGender string    `json:"travelerGender"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	Premium        int64     `json:"premium"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListFilter narrows and pages a policy listing.
type ListFilter struct {
	Search    string
	Status    string
	CoverType string
	Offset    int
	Limit     int
}

// StatusCounts aggregates policies by lifecycle status.
type StatusCounts struct {
	Active      int64 `json:"active"`
	YetToActive int64 `json:"yetToActive"`
	Matured     int64 `json:"matured"`
	Pending     int64 `json:"pending"`
}

// Total sums all status buckets.
func (c StatusCounts) Total() int64 {
	return c.Active + c.YetToActive + c.Matured + c.Pending
}

// AgeGenderBucket counts travelers per age decade and gender.
type AgeGenderBucket struct {
	AgeGroup int    `json:"ageGroup"`
	Gender   string `json:"gender"`
	Count    int64  `json:"count"`
}

// Repository persists issued policies.
type Repository interface {
	Create(ctx context.Context, p Policy) error
	Get(ctx context.Context, id, userID string) (Policy, error)
	// List returns one page of the operator's policies, newest first, with the
	// filtered total. Search matches the cover title.
	List(ctx context.Context, userID string, f ListFilter) ([]Policy, int64, error)
	UpdateStatus(ctx context.Context, id, userID, status string) (Policy, error)
	// CountByStatus aggregates the operator's policies, optionally narrowed to
	// one cover type.
	CountByStatus(ctx context.Context, userID, coverType string) (StatusCounts, error)
	// TravelersByAge buckets the operator's travelers by age decade and gender.
	TravelersByAge(ctx context.Context, userID string) ([]AgeGenderBucket, error)
}
