package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores payments in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the payments table when it does not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	const schema = `
    CREATE TABLE IF NOT EXISTS payments (
        id             UUID PRIMARY KEY,
        transaction_id TEXT NOT NULL UNIQUE,
        gateway        TEXT NOT NULL DEFAULT 'ASC360 WALLET',
        method         TEXT NOT NULL DEFAULT 'WALLET',
        currency       TEXT NOT NULL DEFAULT 'INR',
        total_amount   BIGINT NOT NULL,
        status         TEXT NOT NULL CHECK (status IN ('Success', 'Pending', 'Failed')),
        user_id        TEXT NOT NULL,
        policy_id      TEXT NOT NULL DEFAULT '',
        date           TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE INDEX IF NOT EXISTS payments_user_date_idx ON payments (user_id, date DESC);`
	_, err := r.db.Exec(ctx, schema)
	return err
}

const paymentColumns = `id, transaction_id, gateway, method, currency, total_amount, status, user_id, policy_id, date`

// Create inserts a payment record.
func (r *PostgresRepository) Create(ctx context.Context, p Payment) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO payments (`+paymentColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, p.TransactionID, p.Gateway, p.Method, p.Currency, p.TotalAmount,
		p.Status, p.UserID, p.PolicyID, p.Date.UTC())
	return err
}

// List returns one page of the operator's payments, newest first.
func (r *PostgresRepository) List(ctx context.Context, userID string, f ListFilter) ([]Payment, int64, error) {
	pattern := "%" + f.Search + "%"
	const where = `
        user_id = $1 AND ($2 = '%%' OR transaction_id ILIKE $2 OR gateway ILIKE $2 OR status ILIKE $2)`

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM payments WHERE`+where, userID, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE`+where+`
        ORDER BY date DESC LIMIT $3 OFFSET $4`, userID, pattern, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	payments, err := scanPayments(rows)
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// Summary groups the operator's payments by status.
func (r *PostgresRepository) Summary(ctx context.Context, userID string) ([]StatusSummary, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)
        FROM payments WHERE user_id = $1 GROUP BY status ORDER BY status`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []StatusSummary
	for rows.Next() {
		var s StatusSummary
		if err := rows.Scan(&s.Status, &s.Count, &s.Total); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Recent returns the operator's n most recent payments.
func (r *PostgresRepository) Recent(ctx context.Context, userID string, n int) ([]Payment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM payments
        WHERE user_id = $1 ORDER BY date DESC LIMIT $2`, userID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func scanPayments(rows pgx.Rows) ([]Payment, error) {
	var payments []Payment
	for rows.Next() {
		var p Payment
		var id uuid.UUID
		var date time.Time
		if err := rows.Scan(&id, &p.TransactionID, &p.Gateway, &p.Method, &p.Currency,
			&p.TotalAmount, &p.Status, &p.UserID, &p.PolicyID, &date); err != nil {
			return nil, err
		}
		p.ID = id.String()
		p.Date = date.UTC()
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
