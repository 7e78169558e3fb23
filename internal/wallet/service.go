package wallet

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/asc360/operator-portal/internal/identity"
	"github.com/asc360/operator-portal/internal/ledger"
	"github.com/asc360/operator-portal/internal/notification"
)

const recentTransactionLimit = 20

// Service exposes the authenticated operator's wallet, backed by the ledger.
// The accountID handed to the ledger is always the resolved user identity,
// never a caller-asserted value.
type Service struct {
	ledger         *ledger.Service
	users          *identity.Service
	notifier       notification.Notifier
	openingBalance int64
	currency       string
	logger         *slog.Logger
}

// NewService builds a wallet service instance.
func NewService(ledgerSvc *ledger.Service, users *identity.Service, notifier notification.Notifier, openingBalance int64, currency string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ledger:         ledgerSvc,
		users:          users,
		notifier:       notifier,
		openingBalance: openingBalance,
		currency:       currency,
		logger:         logger,
	}
}

// Provision opens the operator's wallet ledger with the configured opening
// balance. Called exactly once, at registration.
func (s *Service) Provision(ctx context.Context, userID string) error {
	return s.ledger.Open(ctx, userID, s.openingBalance)
}

// Overview combines the owner profile with the current balance and the most
// recent transactions, for the wallet and dashboard views.
type Overview struct {
	User         identity.User
	Balance      ledger.Balance
	Transactions []ledger.Transaction
}

// Overview returns the wallet view for an operator.
func (s *Service) Overview(ctx context.Context, userID string) (Overview, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	balance, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	page, err := s.ledger.ListTransactions(ctx, userID, ledger.Filter{Limit: recentTransactionLimit})
	if err != nil {
		return Overview{}, err
	}
	return Overview{User: user, Balance: balance, Transactions: page.Items}, nil
}

// Transactions returns one page of the filtered history plus the current
// balance. Page numbers are 1-based.
func (s *Service) Transactions(ctx context.Context, userID, search string, page, limit int) (ledger.Page, ledger.Balance, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = recentTransactionLimit
	}
	result, err := s.ledger.ListTransactions(ctx, userID, ledger.Filter{
		Search: search,
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return ledger.Page{}, ledger.Balance{}, err
	}
	balance, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		return ledger.Page{}, ledger.Balance{}, err
	}
	return result, balance, nil
}

// Credit tops up the operator's wallet. createdBy is always the resolved
// operator name; idempotencyKey makes client retries safe.
func (s *Service) Credit(ctx context.Context, userID string, amount int64, note, idempotencyKey string) (ledger.Transaction, ledger.Balance, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return ledger.Transaction{}, ledger.Balance{}, err
	}
	if note == "" {
		note = "Balance added"
	}

	txn, err := s.ledger.Credit(ctx, userID, amount, user.Name, note, idempotencyKey)
	if err != nil {
		return ledger.Transaction{}, ledger.Balance{}, err
	}

	balance, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		return ledger.Transaction{}, ledger.Balance{}, err
	}

	if s.notifier != nil {
		msg := notification.Message{
			Kind:        notification.KindWalletCredit,
			Destination: user.Email,
			Subject:     "Wallet credit receipt",
			Body: fmt.Sprintf("Dear %s,\n\nYour wallet was credited with %d %s (transaction %s).\nCurrent balance: %d %s.\n\nASC360 Operator Portal",
				user.Name, txn.Amount, s.currency, txn.Number, balance.Amount, s.currency),
		}
		if err := s.notifier.Send(ctx, msg); err != nil {
			s.logger.Warn("credit receipt not delivered", slog.String("user_id", userID), slog.Any("error", err))
		}
	}

	return txn, balance, nil
}

// Reconcile reports the integrity of the operator's wallet ledger.
func (s *Service) Reconcile(ctx context.Context, userID string) (ledger.ReconcileReport, error) {
	return s.ledger.Reconcile(ctx, userID)
}
