package repository

import (
	"context"
	"database/sql"

	"dbfleet/internal/domain"
)

var _ domain.AuditRepository = (*AuditRepo)(nil)

// AuditRepo stores administrative audit entries in SQLite.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Insert records one audit entry.
func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = domain.NewID()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor, action, entity, detail)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.Actor, e.Action, e.Entity, e.Detail)
	return mapDBError(err)
}

// ListRecent returns the newest audit entries.
func (r *AuditRepo) ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, actor, action, entity, detail, created_at
		FROM audit_log ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.Entity, &e.Detail, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = parseDBTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
