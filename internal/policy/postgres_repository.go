package policy

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores policies in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the policies table when it does not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	const schema = `
    CREATE TABLE IF NOT EXISTS policies (
        id              UUID PRIMARY KEY,
        number          TEXT NOT NULL UNIQUE,
        cover_title     TEXT NOT NULL,
        cover_type      TEXT NOT NULL CHECK (cover_type IN ('Domestic', 'International')),
        status          TEXT NOT NULL CHECK (status IN ('Active', 'Yet to Active', 'Matured', 'Pending')),
        user_id         TEXT NOT NULL,
        plan_id         TEXT NOT NULL DEFAULT '',
        traveler_name   TEXT NOT NULL DEFAULT '',
        traveler_age    INT NOT NULL DEFAULT 0,
        traveler_gender TEXT NOT NULL DEFAULT 'Male',
        start_date      TIMESTAMPTZ,
        end_date        TIMESTAMPTZ,
        premium         BIGINT NOT NULL DEFAULT 0,
        created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
    );
    CREATE INDEX IF NOT EXISTS policies_user_created_idx ON policies (user_id, created_at DESC);
    CREATE INDEX IF NOT EXISTS policies_user_status_idx ON policies (user_id, status, cover_type);`
	_, err := r.db.Exec(ctx, schema)
	return err
}

const policyColumns = `id, number, cover_title, cover_type, status, user_id, plan_id,
    traveler_name, traveler_age, traveler_gender, start_date, end_date, premium, created_at`

// Create inserts a policy record.
func (r *PostgresRepository) Create(ctx context.Context, p Policy) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO policies (`+policyColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		id, p.Number, p.CoverTitle, p.CoverType, p.Status, p.UserID, p.PlanID,
		p.TravelerName, p.TravelerAge, p.TravelerGender, p.StartDate.UTC(), p.EndDate.UTC(),
		p.Premium, p.CreatedAt.UTC())
	return err
}

// Get fetches one of the operator's policies.
func (r *PostgresRepository) Get(ctx context.Context, id, userID string) (Policy, error) {
	policyID, err := uuid.Parse(id)
	if err != nil {
		return Policy{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+policyColumns+` FROM policies WHERE id = $1 AND user_id = $2`,
		policyID, userID)
	return scanPolicy(row)
}

// List returns one page of the operator's policies, newest first.
func (r *PostgresRepository) List(ctx context.Context, userID string, f ListFilter) ([]Policy, int64, error) {
	pattern := "%" + f.Search + "%"
	const where = `
        user_id = $1 AND ($2 = '' OR status = $2) AND ($3 = '' OR cover_type = $3)
        AND ($4 = '%%' OR cover_title ILIKE $4 OR number ILIKE $4)`

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM policies WHERE`+where,
		userID, f.Status, f.CoverType, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT `+policyColumns+` FROM policies WHERE`+where+`
        ORDER BY created_at DESC LIMIT $5 OFFSET $6`,
		userID, f.Status, f.CoverType, pattern, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var policies []Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, 0, err
		}
		policies = append(policies, p)
	}
	return policies, total, rows.Err()
}

// UpdateStatus changes the lifecycle status of one of the operator's policies.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id, userID, status string) (Policy, error) {
	policyID, err := uuid.Parse(id)
	if err != nil {
		return Policy{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `UPDATE policies SET status = $1 WHERE id = $2 AND user_id = $3
        RETURNING `+policyColumns, status, policyID, userID)
	return scanPolicy(row)
}

// CountByStatus aggregates the operator's policies per status.
func (r *PostgresRepository) CountByStatus(ctx context.Context, userID, coverType string) (StatusCounts, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM policies
        WHERE user_id = $1 AND ($2 = '' OR cover_type = $2)
        GROUP BY status`, userID, coverType)
	if err != nil {
		return StatusCounts{}, err
	}
	defer rows.Close()

	var counts StatusCounts
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return StatusCounts{}, err
		}
		switch status {
		case StatusActive:
			counts.Active = n
		case StatusYetToActive:
			counts.YetToActive = n
		case StatusMatured:
			counts.Matured = n
		case StatusPending:
			counts.Pending = n
		}
	}
	return counts, rows.Err()
}

// TravelersByAge buckets the operator's travelers by age decade and gender.
func (r *PostgresRepository) TravelersByAge(ctx context.Context, userID string) ([]AgeGenderBucket, error) {
	rows, err := r.db.Query(ctx, `SELECT FLOOR(traveler_age / 10)::INT AS age_group, traveler_gender, COUNT(*)
        FROM policies WHERE user_id = $1
        GROUP BY age_group, traveler_gender
        ORDER BY age_group, traveler_gender`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []AgeGenderBucket
	for rows.Next() {
		var b AgeGenderBucket
		if err := rows.Scan(&b.AgeGroup, &b.Gender, &b.Count); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func scanPolicy(row pgx.Row) (Policy, error) {
	var p Policy
	var id uuid.UUID
	var startDate, endDate, createdAt time.Time
	if err := row.Scan(&id, &p.Number, &p.CoverTitle, &p.CoverType, &p.Status, &p.UserID, &p.PlanID,
		&p.TravelerName, &p.TravelerAge, &p.TravelerGender, &startDate, &endDate, &p.Premium, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Policy{}, ErrNotFound
		}
		return Policy{}, err
	}
	p.ID = id.String()
	p.StartDate = startDate.UTC()
	p.EndDate = endDate.UTC()
	p.CreatedAt = createdAt.UTC()
	return p, nil
}
