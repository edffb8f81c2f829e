package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dbfleet/internal/domain"
)

var _ domain.AssignmentRepository = (*AssignmentRepo)(nil)

// AssignmentRepo stores classification assignments, one row per account.
type AssignmentRepo struct {
	db *sql.DB
}

// NewAssignmentRepo creates a new AssignmentRepo.
func NewAssignmentRepo(db *sql.DB) *AssignmentRepo {
	return &AssignmentRepo{db: db}
}

// Upsert records an assignment for an account. assigned_at is only bumped
// when the classification or the rule version actually changed, which keeps
// a re-run with unchanged data byte-identical.
func (r *AssignmentRepo) Upsert(ctx context.Context, a *domain.ClassificationAssignment) (created bool, changed bool, err error) {
	if a == nil || a.AccountID == "" || a.ClassificationID == "" || a.RuleID == "" {
		return false, false, domain.ErrValidation("account_id, classification_id, and rule_id are required")
	}

	existing, err := r.GetByAccount(ctx, a.AccountID)
	var notFound *domain.NotFoundError
	switch {
	case errors.As(err, &notFound):
		a.ID = domain.NewID()
		now := time.Now().UTC()
		a.AssignedAt = now
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO classification_assignments (id, account_id, classification_id, rule_id, assigned_at)
			VALUES (?, ?, ?, ?, ?)
		`, a.ID, a.AccountID, a.ClassificationID, a.RuleID, now.Format(time.RFC3339Nano))
		if err != nil {
			return false, false, mapDBError(err)
		}
		return true, true, nil
	case err != nil:
		return false, false, err
	}

	if existing.ClassificationID == a.ClassificationID && existing.RuleID == a.RuleID {
		a.ID = existing.ID
		a.AssignedAt = existing.AssignedAt
		return false, false, nil
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		UPDATE classification_assignments
		SET classification_id = ?, rule_id = ?, assigned_at = ?
		WHERE account_id = ?
	`, a.ClassificationID, a.RuleID, now.Format(time.RFC3339Nano), a.AccountID)
	if err != nil {
		return false, false, mapDBError(err)
	}
	a.ID = existing.ID
	a.AssignedAt = now
	return false, true, nil
}

// GetByAccount returns the assignment for an account.
func (r *AssignmentRepo) GetByAccount(ctx context.Context, accountID string) (*domain.ClassificationAssignment, error) {
	var a domain.ClassificationAssignment
	var assignedAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, classification_id, rule_id, assigned_at
		FROM classification_assignments WHERE account_id = ?
	`, accountID).Scan(&a.ID, &a.AccountID, &a.ClassificationID, &a.RuleID, &assignedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	a.AssignedAt = parseDBTime(assignedAt)
	return &a, nil
}

// DeleteByAccount removes an account's assignment, e.g. when no active
// rule matches it any longer.
func (r *AssignmentRepo) DeleteByAccount(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM classification_assignments WHERE account_id = ?
	`, accountID)
	return mapDBError(err)
}

// ListByClassification returns all assignments for one classification.
func (r *AssignmentRepo) ListByClassification(ctx context.Context, classificationID string) ([]domain.ClassificationAssignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, classification_id, rule_id, assigned_at
		FROM classification_assignments WHERE classification_id = ?
		ORDER BY assigned_at
	`, classificationID)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.ClassificationAssignment
	for rows.Next() {
		var a domain.ClassificationAssignment
		var assignedAt string
		if err := rows.Scan(&a.ID, &a.AccountID, &a.ClassificationID, &a.RuleID, &assignedAt); err != nil {
			return nil, err
		}
		a.AssignedAt = parseDBTime(assignedAt)
		out = append(out, a)
	}
	return out, rows.Err()
}
