package plan

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates no plan exists with the requested identifier.
var ErrNotFound = errors.New("plan not found")

// Plan is a sellable insurance cover. Price is in minor units.
type Plan struct {
	ID             string    `json:"id"`
	Title          string    `json:"planTitle"`
	Scope          string    `json:"scope"`
	Price          int64     `json:"price"`
	Description    string    `json:"description"`
	CoverageAmount int64     `json:"coverageAmount"`
	DurationDays   int       `json:"durationDays"`
	Active         bool      `json:"isActive"`
	CreatedAt      time.Time `json:"created_at"`
}

// Repository persists the plan catalog.
type Repository interface {
	Create(ctx context.Context, p Plan) error
	Get(ctx context.Context, id string) (Plan, error)
	// List returns active plans, optionally narrowed by scope and a
	// case-insensitive title search, newest first.
	List(ctx context.Context, scope, search string) ([]Plan, error)
}
