package plan

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores plans in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the plans table when it does not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	const schema = `
    CREATE TABLE IF NOT EXISTS plans (
        id              UUID PRIMARY KEY,
        title           TEXT NOT NULL,
        scope           TEXT NOT NULL CHECK (scope IN ('Domestic', 'International')),
        price           BIGINT NOT NULL,
        description     TEXT NOT NULL DEFAULT '',
        coverage_amount BIGINT NOT NULL DEFAULT 0,
        duration_days   INT NOT NULL DEFAULT 30,
        active          BOOLEAN NOT NULL DEFAULT TRUE,
        created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
    );`
	_, err := r.db.Exec(ctx, schema)
	return err
}

// Create inserts a plan record.
func (r *PostgresRepository) Create(ctx context.Context, p Plan) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO plans
        (id, title, scope, price, description, coverage_amount, duration_days, active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, p.Title, p.Scope, p.Price, p.Description, p.CoverageAmount, p.DurationDays, p.Active, p.CreatedAt.UTC())
	return err
}

// Get fetches a plan by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Plan, error) {
	planID, err := uuid.Parse(id)
	if err != nil {
		return Plan{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, title, scope, price, description, coverage_amount, duration_days, active, created_at
        FROM plans WHERE id = $1`, planID)
	return scanPlan(row)
}

// List returns active plans, newest first.
func (r *PostgresRepository) List(ctx context.Context, scope, search string) ([]Plan, error) {
	rows, err := r.db.Query(ctx, `SELECT id, title, scope, price, description, coverage_amount, duration_days, active, created_at
        FROM plans
        WHERE active AND ($1 = '' OR scope = $1) AND ($2 = '' OR title ILIKE '%' || $2 || '%')
        ORDER BY created_at DESC`, scope, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func scanPlan(row pgx.Row) (Plan, error) {
	var p Plan
	var id uuid.UUID
	var createdAt time.Time
	if err := row.Scan(&id, &p.Title, &p.Scope, &p.Price, &p.Description,
		&p.CoverageAmount, &p.DurationDays, &p.Active, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Plan{}, ErrNotFound
		}
		return Plan{}, err
	}
	p.ID = id.String()
	p.CreatedAt = createdAt.UTC()
	return p, nil
}
