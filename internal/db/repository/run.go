package repository

import (
	"context"
	"database/sql"
	"time"

	"dbfleet/internal/domain"
)

var _ domain.RunRepository = (*RunRepo)(nil)

// RunRepo stores classification pass summaries in SQLite.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo creates a new RunRepo.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Create inserts a run row in the running state.
func (r *RunRepo) Create(ctx context.Context, run *domain.ClassificationRun) (*domain.ClassificationRun, error) {
	if run.ID == "" {
		run.ID = domain.NewID()
	}
	if run.Status == "" {
		run.Status = domain.RunStatusRunning
	}
	run.StartedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO classification_runs (id, db_type, status, started_at)
		VALUES (?, ?, ?, ?)
	`, run.ID, run.DBType, run.Status, run.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, mapDBError(err)
	}
	return run, nil
}

// Finish records the run's terminal status and counters.
func (r *RunRepo) Finish(ctx context.Context, run *domain.ClassificationRun) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	_, err := r.db.ExecContext(ctx, `
		UPDATE classification_runs
		SET status = ?, created_count = ?, updated_count = ?, unchanged_count = ?,
		    skipped_count = ?, finished_at = ?
		WHERE id = ?
	`, run.Status, run.Created, run.Updated, run.Unchanged, run.Skipped,
		now.Format(time.RFC3339Nano), run.ID)
	return mapDBError(err)
}

// ListRecent returns the latest runs for one engine type, newest first.
func (r *RunRepo) ListRecent(ctx context.Context, dbType string, limit int) ([]domain.ClassificationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, db_type, status, created_count, updated_count, unchanged_count,
		       skipped_count, started_at, finished_at
		FROM classification_runs
		WHERE db_type = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, dbType, limit)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.ClassificationRun
	for rows.Next() {
		var run domain.ClassificationRun
		var startedAt string
		var finishedAt sql.NullString
		if err := rows.Scan(&run.ID, &run.DBType, &run.Status, &run.Created,
			&run.Updated, &run.Unchanged, &run.Skipped, &startedAt, &finishedAt); err != nil {
			return nil, err
		}
		run.StartedAt = parseDBTime(startedAt)
		run.FinishedAt = nullableTime(finishedAt)
		out = append(out, run)
	}
	return out, rows.Err()
}
