package dashboard

import (
	"context"

	"github.com/asc360/operator-portal/internal/ledger"
	"github.com/asc360/operator-portal/internal/payment"
	"github.com/asc360/operator-portal/internal/plan"
	"github.com/asc360/operator-portal/internal/policy"
)

const recentPayments = 5

// Stats is the landing-page snapshot for one operator.
type Stats struct {
	Policies       policy.StatusCounts `json:"policies"`
	TotalPolicies  int64               `json:"totalPolicies"`
	ChartData      []CoverSlice        `json:"chartData"`
	WalletBalance  int64               `json:"walletBalance"`
	ActivePlans    int                 `json:"activePlans"`
	RecentPayments []payment.Payment   `json:"recentPayments"`
}

// CoverSlice is one cover-type segment of the policy chart.
type CoverSlice struct {
	CoverType string              `json:"coverType"`
	Counts    policy.StatusCounts `json:"counts"`
	Total     int64               `json:"total"`
}

// Service assembles dashboard aggregates from the domain stores.
type Service struct {
	policies *policy.Service
	payments payment.Repository
	plans    plan.Repository
	ledger   *ledger.Service
}

// NewService builds a dashboard service.
func NewService(policies *policy.Service, payments payment.Repository, plans plan.Repository, ledgerSvc *ledger.Service) *Service {
	return &Service{policies: policies, payments: payments, plans: plans, ledger: ledgerSvc}
}

// Stats returns the operator's dashboard snapshot. coverType, when set,
// narrows the headline policy counts; the chart always shows both scopes.
func (s *Service) Stats(ctx context.Context, userID, coverType string) (Stats, error) {
	counts, err := s.policies.CountByStatus(ctx, userID, coverType)
	if err != nil {
		return Stats{}, err
	}

	chart := make([]CoverSlice, 0, 2)
	for _, scope := range []string{policy.CoverDomestic, policy.CoverInternational} {
		c, err := s.policies.CountByStatus(ctx, userID, scope)
		if err != nil {
			return Stats{}, err
		}
		chart = append(chart, CoverSlice{CoverType: scope, Counts: c, Total: c.Total()})
	}

	bal, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		return Stats{}, err
	}

	plans, err := s.plans.List(ctx, "", "")
	if err != nil {
		return Stats{}, err
	}

	recent, err := s.payments.Recent(ctx, userID, recentPayments)
	if err != nil {
		return Stats{}, err
	}
	if recent == nil {
		recent = []payment.Payment{}
	}

	return Stats{
		Policies:       counts,
		TotalPolicies:  counts.Total(),
		ChartData:      chart,
		WalletBalance:  bal.Amount,
		ActivePlans:    len(plans),
		RecentPayments: recent,
	}, nil
}

// TravelersByAge proxies the policy age chart for the dashboard route.
func (s *Service) TravelersByAge(ctx context.Context, userID string) ([]policy.AgeGenderBucket, error) {
	return s.policies.TravelersByAge(ctx, userID)
}
