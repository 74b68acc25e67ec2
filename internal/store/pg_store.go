package store

import (
	"context"
	"database/sql"
	"time"

	"physician-scheduler/internal/db"
	"physician-scheduler/internal/models"
	"physician-scheduler/internal/registry"
)

// PostgresStore archives finished runs and the physician roster. It is
// optional: the JSON files above are the primary persistence, the archive
// exists for history and reporting across runs.
type PostgresStore struct {
	q  *db.Queries
	db *sql.DB
}

func NewPostgresStore(conn *sql.DB) *PostgresStore {
	return &PostgresStore{q: db.New(conn), db: conn}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS schedule_runs (
	id TEXT PRIMARY KEY,
	start_date DATE NOT NULL,
	end_date DATE NOT NULL,
	capacity_basis DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS schedule_records (
	run_id TEXT NOT NULL REFERENCES schedule_runs(id) ON DELETE CASCADE,
	date DATE NOT NULL,
	task_code TEXT NOT NULL,
	physician_id TEXT,
	PRIMARY KEY (run_id, date, task_code)
);
CREATE TABLE IF NOT EXISTS physicians (
	id TEXT PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL,
	initials TEXT NOT NULL DEFAULT '',
	eligible_categories TEXT[] NOT NULL DEFAULT '{}',
	preferred_categories TEXT[] NOT NULL DEFAULT '{}',
	restricted_permissions TEXT[] NOT NULL DEFAULT '{}',
	full_time BOOLEAN NOT NULL DEFAULT false,
	fte_fraction DOUBLE PRECISION NOT NULL
);`

// EnsureSchema creates the archive tables when they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

// SaveRun archives one run and all its records in a single transaction.
// Gap records are stored with a NULL physician.
func (s *PostgresStore) SaveRun(ctx context.Context, runID string, schedule *models.Schedule, basis float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	q := s.q.WithTx(tx)
	err = q.InsertRun(ctx, db.Run{
		ID:            runID,
		StartDate:     schedule.StartDate,
		EndDate:       schedule.EndDate,
		CapacityBasis: basis,
	})
	if err != nil {
		return err
	}
	for _, a := range schedule.Assignments {
		rec := db.Record{RunID: runID, Date: a.Date, TaskCode: a.TaskCode}
		if !a.IsGap() {
			rec.PhysicianID = sql.NullString{String: a.PhysicianID, Valid: true}
		}
		if err := q.InsertRecord(ctx, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadRun rebuilds the schedule of an archived run along with the capacity
// basis it was generated under.
func (s *PostgresStore) LoadRun(ctx context.Context, runID string) (*models.Schedule, float64, error) {
	run, err := s.q.GetRun(ctx, runID)
	if err != nil {
		return nil, 0, err
	}
	records, err := s.q.ListRecords(ctx, runID)
	if err != nil {
		return nil, 0, err
	}

	schedule := models.NewSchedule(run.StartDate, run.EndDate)
	for _, rec := range records {
		a := models.Assignment{Date: models.Midnight(rec.Date), TaskCode: rec.TaskCode}
		if rec.PhysicianID.Valid {
			a.PhysicianID = rec.PhysicianID.String
		}
		schedule.Add(a)
	}
	schedule.Sort()
	return schedule, run.CapacityBasis, nil
}

// RunSummary describes one archived run.
type RunSummary struct {
	ID            string    `json:"id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	CapacityBasis float64   `json:"capacity_basis"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *PostgresStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	runs, err := s.q.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		out = append(out, RunSummary{
			ID:            r.ID,
			StartDate:     models.Midnight(r.StartDate),
			EndDate:       models.Midnight(r.EndDate),
			CapacityBasis: r.CapacityBasis,
			CreatedAt:     r.CreatedAt,
		})
	}
	return out, nil
}

// SaveRoster upserts the physician profiles; the category lists are stored
// as Postgres text arrays.
func (s *PostgresStore) SaveRoster(ctx context.Context, physicians []*models.Physician) error {
	for _, p := range physicians {
		err := s.q.UpsertPhysician(ctx, db.Physician{
			ID:                    p.ID,
			FirstName:             p.FirstName,
			LastName:              p.LastName,
			Initials:              p.Initials,
			EligibleCategories:    p.EligibleCategories,
			PreferredCategories:   p.PreferredCategories,
			RestrictedPermissions: p.RestrictedPermissions,
			FullTime:              p.FullTime,
			FTEFraction:           p.FTEFraction,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadRoster rebuilds a registry from the archived profiles. Validation runs
// again on the way in, so rows edited by hand still go through the same
// checks as fresh registrations.
func (s *PostgresStore) LoadRoster(ctx context.Context) (*registry.Registry, error) {
	rows, err := s.q.ListPhysicians(ctx)
	if err != nil {
		return nil, err
	}
	r := registry.New()
	for _, row := range rows {
		p := &models.Physician{
			ID:                    row.ID,
			FirstName:             row.FirstName,
			LastName:              row.LastName,
			Initials:              row.Initials,
			EligibleCategories:    row.EligibleCategories,
			PreferredCategories:   row.PreferredCategories,
			RestrictedPermissions: row.RestrictedPermissions,
			FullTime:              row.FullTime,
			FTEFraction:           row.FTEFraction,
		}
		if err := r.Add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}
