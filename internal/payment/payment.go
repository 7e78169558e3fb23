package payment

import (
	"context"
	"time"
)

// Statuses recorded for portal payments.
const (
	StatusSuccess = "Success"
	StatusPending = "Pending"
	StatusFailed  = "Failed"
)

// Payment is one settled charge against an operator, usually a wallet debit
// backing a policy issuance. TotalAmount is in minor units.
type Payment struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transactionId"`
	Gateway       string    `json:"gateway"`
	Method        string    `json:"method"`
	Currency      string    `json:"currency"`
	TotalAmount   int64     `json:"totalAmount"`
	Status        string    `json:"status"`
	UserID        string    `json:"userId"`
	PolicyID      string    `json:"policyId,omitempty"`
	Date          time.Time `json:"date"`
}

// StatusSummary aggregates payments of one status.
type StatusSummary struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
	Total  int64  `json:"total"`
}

// ListFilter narrows and pages a payment listing.
type ListFilter struct {
	Search string
	Offset int
	Limit  int
}

// Repository persists payment history.
type Repository interface {
	Create(ctx context.Context, p Payment) error
	// List returns one page of the operator's payments, newest first, with the
	// filtered total. Search matches transactionId, gateway and status.
	List(ctx context.Context, userID string, f ListFilter) ([]Payment, int64, error)
	// Summary groups the operator's payments by status.
	Summary(ctx context.Context, userID string) ([]StatusSummary, error)
	// Recent returns the operator's n most recent payments.
	Recent(ctx context.Context, userID string, n int) ([]Payment, error)
}
