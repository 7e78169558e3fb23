package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresStore persists ledgers in PostgreSQL. The wallet row is locked with
// SELECT ... FOR UPDATE for the duration of each posting so the transaction
// insert and the balance update commit as one unit per account.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the ledger tables when they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const schema = `
    CREATE TABLE IF NOT EXISTS wallets (
        account_id TEXT PRIMARY KEY,
        balance    BIGINT NOT NULL DEFAULT 0,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE TABLE IF NOT EXISTS wallet_transactions (
        id         UUID PRIMARY KEY,
        account_id TEXT NOT NULL REFERENCES wallets(account_id),
        seq        BIGSERIAL UNIQUE,
        number     TEXT NOT NULL UNIQUE,
        amount     BIGINT NOT NULL CHECK (amount > 0),
        type       TEXT NOT NULL CHECK (type IN ('CREDIT', 'DEDUCT')),
        created_by TEXT NOT NULL DEFAULT 'System',
        note       TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE INDEX IF NOT EXISTS wallet_transactions_account_created_idx
        ON wallet_transactions (account_id, created_at DESC, seq DESC);`
	_, err := s.db.Exec(ctx, schema)
	return err
}

// CreateAccount provisions the wallet row for an account.
func (s *PostgresStore) CreateAccount(ctx context.Context, accountID string) error {
	tag, err := s.db.Exec(ctx, `INSERT INTO wallets (account_id, balance) VALUES ($1, 0)
        ON CONFLICT (account_id) DO NOTHING`, accountID)
	if err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountExists
	}
	return nil
}

// Balance returns the stored balance and transaction count for the account.
func (s *PostgresStore) Balance(ctx context.Context, accountID string) (Balance, error) {
	const query = `
        SELECT w.balance, (SELECT COUNT(*) FROM wallet_transactions t WHERE t.account_id = w.account_id)
        FROM wallets w WHERE w.account_id = $1`
	var bal Balance
	if err := s.db.QueryRow(ctx, query, accountID).Scan(&bal.Amount, &bal.TransactionCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, ErrNotFound
		}
		return Balance{}, err
	}
	bal.AccountID = accountID
	bal.AsOf = time.Now().UTC()
	return bal, nil
}

// Search returns a filtered page of the account's history, newest first.
func (s *PostgresStore) Search(ctx context.Context, accountID string, f Filter) (Page, error) {
	if _, err := s.Balance(ctx, accountID); err != nil {
		return Page{}, err
	}

	pattern := "%" + f.Search + "%"
	const where = `
        account_id = $1 AND ($2 = '%%' OR number ILIKE $2 OR type ILIKE $2 OR created_by ILIKE $2)`

	var total int64
	if err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM wallet_transactions WHERE`+where, accountID, pattern).Scan(&total); err != nil {
		return Page{}, err
	}

	rows, err := s.db.Query(ctx, `
        SELECT id, number, amount, type, created_by, note, seq, created_at
        FROM wallet_transactions WHERE`+where+`
        ORDER BY created_at DESC, seq DESC
        LIMIT $3 OFFSET $4`, accountID, pattern, f.Limit, f.Offset)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	page := Page{Total: total}
	for rows.Next() {
		var t Transaction
		var id uuid.UUID
		if err := rows.Scan(&id, &t.Number, &t.Amount, &t.Type, &t.CreatedBy, &t.Note, &t.Seq, &t.CreatedAt); err != nil {
			return Page{}, err
		}
		t.ID = id.String()
		t.CreatedAt = t.CreatedAt.UTC()
		page.Items = append(page.Items, t)
	}
	return page, rows.Err()
}

// Append applies one posting atomically: lock the wallet row, check the
// idempotency key, enforce the balance floor, insert the transaction and
// update the balance inside a single database transaction.
func (s *PostgresStore) Append(ctx context.Context, accountID string, e Entry, minBalance int64) (AppendResult, error) {
	if e.Amount <= 0 || !e.Type.Valid() {
		return AppendResult{}, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return AppendResult{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var balance int64
	if err := tx.QueryRow(ctx,
		`SELECT balance FROM wallets WHERE account_id = $1 FOR UPDATE`, accountID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AppendResult{}, ErrNotFound
		}
		return AppendResult{}, err
	}

	var existing Transaction
	var existingID uuid.UUID
	var existingAccount string
	err = tx.QueryRow(ctx, `
        SELECT id, account_id, number, amount, type, created_by, note, seq, created_at
        FROM wallet_transactions WHERE number = $1`, e.Number).
		Scan(&existingID, &existingAccount, &existing.Number, &existing.Amount, &existing.Type,
			&existing.CreatedBy, &existing.Note, &existing.Seq, &existing.CreatedAt)
	switch {
	case err == nil:
		// Numbers are globally unique; a match on another ledger is a reuse,
		// never a replay of this account's posting.
		if existingAccount != accountID || existing.Amount != e.Amount || existing.Type != e.Type {
			return AppendResult{}, ErrConflict
		}
		existing.ID = existingID.String()
		existing.CreatedAt = existing.CreatedAt.UTC()
		return AppendResult{Transaction: existing, NewBalance: balance, Created: false}, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return AppendResult{}, err
	}

	next := balance + e.Type.Signed(e.Amount)
	if e.Type == TypeDeduct && next < minBalance {
		return AppendResult{}, ErrInsufficientBalance
	}

	txn := Transaction{
		ID:        uuid.NewString(),
		Number:    e.Number,
		Amount:    e.Amount,
		Type:      e.Type,
		CreatedBy: e.CreatedBy,
		Note:      e.Note,
	}
	if err := tx.QueryRow(ctx, `
        INSERT INTO wallet_transactions (id, account_id, number, amount, type, created_by, note)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING seq, created_at`,
		txn.ID, accountID, txn.Number, txn.Amount, txn.Type, txn.CreatedBy, txn.Note).
		Scan(&txn.Seq, &txn.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// A concurrent posting with the same number won the race; let the
			// service retry and observe it as a replay.
			return AppendResult{}, ErrRetryConflict
		}
		return AppendResult{}, err
	}
	txn.CreatedAt = txn.CreatedAt.UTC()

	if _, err := tx.Exec(ctx,
		`UPDATE wallets SET balance = $1, updated_at = now() WHERE account_id = $2`, next, accountID); err != nil {
		return AppendResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return AppendResult{}, fmt.Errorf("commit: %w", err)
	}

	return AppendResult{Transaction: txn, NewBalance: next, Created: true}, nil
}

// Reconcile recomputes the balance from the history inside one snapshot.
func (s *PostgresStore) Reconcile(ctx context.Context, accountID string) (ReconcileReport, error) {
	const query = `
        SELECT w.balance,
               COALESCE(SUM(CASE WHEN t.type = 'DEDUCT' THEN -t.amount ELSE t.amount END), 0),
               COUNT(t.id)
        FROM wallets w
        LEFT JOIN wallet_transactions t ON t.account_id = w.account_id
        WHERE w.account_id = $1
        GROUP BY w.balance`
	var report ReconcileReport
	if err := s.db.QueryRow(ctx, query, accountID).
		Scan(&report.StoredBalance, &report.ComputedBalance, &report.TransactionCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReconcileReport{}, ErrNotFound
		}
		return ReconcileReport{}, err
	}
	report.AccountID = accountID
	report.Consistent = report.StoredBalance == report.ComputedBalance
	return report, nil
}

// AccountIDs lists every wallet, for the reconciliation sweep.
func (s *PostgresStore) AccountIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT account_id FROM wallets ORDER BY account_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
