// Package db holds the row types and queries for the Postgres run archive.
// Hand-written in the shape sqlc would generate; the queries are simple
// enough that generation is not worth the build step.
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
)

type Run struct {
	ID            string
	StartDate     time.Time
	EndDate       time.Time
	CapacityBasis float64
	CreatedAt     time.Time
}

type Record struct {
	RunID       string
	Date        time.Time
	TaskCode    string
	PhysicianID sql.NullString
}

type Physician struct {
	ID                    string
	FirstName             string
	LastName              string
	Initials              string
	EligibleCategories    []string
	PreferredCategories   []string
	RestrictedPermissions []string
	FullTime              bool
	FTEFraction           float64
}

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

func (q *Queries) InsertRun(ctx context.Context, arg Run) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO schedule_runs (id, start_date, end_date, capacity_basis) VALUES ($1, $2, $3, $4)",
		arg.ID, arg.StartDate, arg.EndDate, arg.CapacityBasis,
	)
	return err
}

func (q *Queries) InsertRecord(ctx context.Context, arg Record) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO schedule_records (run_id, date, task_code, physician_id) VALUES ($1, $2, $3, $4)",
		arg.RunID, arg.Date, arg.TaskCode, arg.PhysicianID,
	)
	return err
}

func (q *Queries) GetRun(ctx context.Context, id string) (Run, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT id, start_date, end_date, capacity_basis, created_at FROM schedule_runs WHERE id = $1", id)
	var r Run
	err := row.Scan(&r.ID, &r.StartDate, &r.EndDate, &r.CapacityBasis, &r.CreatedAt)
	return r, err
}

func (q *Queries) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, start_date, end_date, capacity_basis, created_at FROM schedule_runs ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartDate, &r.EndDate, &r.CapacityBasis, &r.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) ListRecords(ctx context.Context, runID string) ([]Record, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT run_id, date, task_code, physician_id FROM schedule_records WHERE run_id = $1 ORDER BY date, task_code", runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.RunID, &r.Date, &r.TaskCode, &r.PhysicianID); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) UpsertPhysician(ctx context.Context, arg Physician) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO physicians
		(id, first_name, last_name, initials, eligible_categories, preferred_categories, restricted_permissions, full_time, fte_fraction)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
		first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, initials = EXCLUDED.initials,
		eligible_categories = EXCLUDED.eligible_categories, preferred_categories = EXCLUDED.preferred_categories,
		restricted_permissions = EXCLUDED.restricted_permissions, full_time = EXCLUDED.full_time, fte_fraction = EXCLUDED.fte_fraction`,
		arg.ID, arg.FirstName, arg.LastName, arg.Initials,
		pq.Array(arg.EligibleCategories), pq.Array(arg.PreferredCategories), pq.Array(arg.RestrictedPermissions),
		arg.FullTime, arg.FTEFraction,
	)
	return err
}

func (q *Queries) ListPhysicians(ctx context.Context) ([]Physician, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, first_name, last_name, initials, eligible_categories, preferred_categories, restricted_permissions, full_time, fte_fraction FROM physicians ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Physician
	for rows.Next() {
		var p Physician
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Initials,
			pq.Array(&p.EligibleCategories), pq.Array(&p.PreferredCategories), pq.Array(&p.RestrictedPermissions),
			&p.FullTime, &p.FTEFraction); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
