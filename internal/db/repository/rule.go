package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"dbfleet/internal/domain"
)

var _ domain.RuleRepository = (*RuleRepo)(nil)

// RuleRepo is the append-only rule store. Rows are never updated in place
// except for the is_active flag and the superseded_at marker; expressions
// are immutable once written.
type RuleRepo struct {
	db *sql.DB
}

// NewRuleRepo creates a new RuleRepo.
func NewRuleRepo(db *sql.DB) *RuleRepo {
	return &RuleRepo{db: db}
}

const ruleColumns = `id, group_id, version, name, db_type, classification_id,
	priority, expression_json, legacy_capability, is_active, superseded_at, created_at`

// Create inserts version 1 of a new rule group. The (db_type, name) pair
// is unique among current rows; a duplicate fails with a conflict.
func (r *RuleRepo) Create(ctx context.Context, rule *domain.ClassificationRule) (*domain.ClassificationRule, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	rule.ID = domain.NewID()
	if rule.GroupID == "" {
		rule.GroupID = domain.NewID()
	}
	rule.Version = 1
	if rule.Priority == 0 {
		rule.Priority = 100
	}

	exprJSON, err := json.Marshal(rule.Expression)
	if err != nil {
		return nil, fmt.Errorf("marshal expression: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO classification_rules
			(id, group_id, version, name, db_type, classification_id, priority,
			 expression_json, legacy_capability, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rule.ID, rule.GroupID, rule.Version, rule.Name, rule.DBType,
		rule.ClassificationID, rule.Priority, string(exprJSON),
		rule.LegacyCapability, boolToInt(rule.IsActive))
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByID(ctx, rule.ID)
}

// NewVersion appends the next version to an existing group and marks the
// prior current version superseded, in one transaction. The prior row's
// expression is never touched.
func (r *RuleRepo) NewVersion(ctx context.Context, groupID string, rule *domain.ClassificationRule) (*domain.ClassificationRule, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	var maxVersion int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM classification_rules WHERE group_id = ?
	`, groupID).Scan(&maxVersion)
	if err != nil {
		return nil, mapDBError(err)
	}
	if maxVersion == 0 {
		return nil, domain.ErrNotFound("rule group %s not found", groupID)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, `
		UPDATE classification_rules SET superseded_at = ?
		WHERE group_id = ? AND superseded_at IS NULL
	`, now, groupID); err != nil {
		return nil, mapDBError(err)
	}

	exprJSON, err := json.Marshal(rule.Expression)
	if err != nil {
		return nil, fmt.Errorf("marshal expression: %w", err)
	}

	rule.ID = domain.NewID()
	rule.GroupID = groupID
	rule.Version = maxVersion + 1
	if rule.Priority == 0 {
		rule.Priority = 100
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO classification_rules
			(id, group_id, version, name, db_type, classification_id, priority,
			 expression_json, legacy_capability, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rule.ID, rule.GroupID, rule.Version, rule.Name, rule.DBType,
		rule.ClassificationID, rule.Priority, string(exprJSON),
		rule.LegacyCapability, boolToInt(rule.IsActive)); err != nil {
		return nil, mapDBError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, rule.ID)
}

// SetActive flips the is_active flag on a group's current version.
func (r *RuleRepo) SetActive(ctx context.Context, groupID string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE classification_rules SET is_active = ?
		WHERE group_id = ? AND superseded_at IS NULL
	`, boolToInt(active), groupID)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("rule group %s has no current version", groupID)
	}
	return nil
}

// GetByID returns one rule version by its row ID, current or superseded.
func (r *RuleRepo) GetByID(ctx context.Context, id string) (*domain.ClassificationRule, error) {
	return r.getOne(ctx, `SELECT `+ruleColumns+` FROM classification_rules WHERE id = ?`, id)
}

// GetCurrent returns the group's current (not superseded) version.
func (r *RuleRepo) GetCurrent(ctx context.Context, groupID string) (*domain.ClassificationRule, error) {
	return r.getOne(ctx, `
		SELECT `+ruleColumns+` FROM classification_rules
		WHERE group_id = ? AND superseded_at IS NULL
	`, groupID)
}

// GetCurrentByName returns the current version of the rule with the given
// name for one engine type.
func (r *RuleRepo) GetCurrentByName(ctx context.Context, dbType, name string) (*domain.ClassificationRule, error) {
	rule, err := scanRule(r.db.QueryRowContext(ctx, `
		SELECT `+ruleColumns+` FROM classification_rules
		WHERE db_type = ? AND name = ? AND superseded_at IS NULL
	`, dbType, name))
	if err != nil {
		return nil, mapDBError(err)
	}
	return rule, nil
}

// ListActive returns rows driving live evaluation for one engine type:
// is_active AND not superseded, in stable evaluation order (priority, then
// group id as tie-break).
func (r *RuleRepo) ListActive(ctx context.Context, dbType string) ([]domain.ClassificationRule, error) {
	return r.list(ctx, `
		SELECT `+ruleColumns+` FROM classification_rules
		WHERE db_type = ? AND is_active = 1 AND superseded_at IS NULL
		ORDER BY priority, group_id
	`, dbType)
}

// ListVersions returns all versions of a group, oldest first.
func (r *RuleRepo) ListVersions(ctx context.Context, groupID string) ([]domain.ClassificationRule, error) {
	return r.list(ctx, `
		SELECT `+ruleColumns+` FROM classification_rules
		WHERE group_id = ? ORDER BY version
	`, groupID)
}

func (r *RuleRepo) getOne(ctx context.Context, query string, arg interface{}) (*domain.ClassificationRule, error) {
	rule, err := scanRule(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, mapDBError(err)
	}
	return rule, nil
}

func (r *RuleRepo) list(ctx context.Context, query string, arg interface{}) ([]domain.ClassificationRule, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.ClassificationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rule)
	}
	return out, rows.Err()
}

func scanRule(row rowScanner) (*domain.ClassificationRule, error) {
	var rule domain.ClassificationRule
	var exprJSON, createdAt string
	var supersededAt sql.NullString
	var isActive int64

	if err := row.Scan(&rule.ID, &rule.GroupID, &rule.Version, &rule.Name,
		&rule.DBType, &rule.ClassificationID, &rule.Priority, &exprJSON,
		&rule.LegacyCapability, &isActive, &supersededAt, &createdAt); err != nil {
		return nil, err
	}

	rule.IsActive = isActive != 0
	rule.SupersededAt = nullableTime(supersededAt)
	rule.CreatedAt = parseDBTime(createdAt)

	// A malformed stored expression marks the rule instead of failing the
	// whole load: the pass skips it with a warning (fail-open per-rule).
	if err := json.Unmarshal([]byte(exprJSON), &rule.Expression); err != nil {
		rule.ExpressionErr = err.Error()
	}
	return &rule, nil
}

func validateRule(rule *domain.ClassificationRule) error {
	if rule == nil {
		return domain.ErrValidation("rule is required")
	}
	if rule.Name == "" {
		return domain.ErrValidation("rule name is required")
	}
	if !domain.ValidDBType(rule.DBType) {
		return domain.ErrValidation("unknown db_type %q", rule.DBType)
	}
	if rule.ClassificationID == "" {
		return domain.ErrValidation("classification_id is required")
	}
	return rule.Expression.Validate()
}
