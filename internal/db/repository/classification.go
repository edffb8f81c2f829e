package repository

import (
	"context"
	"database/sql"

	"dbfleet/internal/domain"
)

var _ domain.ClassificationRepository = (*ClassificationRepo)(nil)

// ClassificationRepo stores the risk taxonomy in SQLite.
type ClassificationRepo struct {
	db *sql.DB
}

// NewClassificationRepo creates a new ClassificationRepo.
func NewClassificationRepo(db *sql.DB) *ClassificationRepo {
	return &ClassificationRepo{db: db}
}

// Upsert inserts a classification or refreshes an existing one by code.
// Used by idempotent seeding: re-asserting a system classification never
// clobbers a user-added one because codes are unique anchors.
func (r *ClassificationRepo) Upsert(ctx context.Context, c *domain.AccountClassification) (*domain.AccountClassification, error) {
	if c.Code == "" {
		return nil, domain.ErrValidation("classification code is required")
	}
	if c.RiskLevel < domain.RiskLevelHighest || c.RiskLevel > domain.RiskLevelLowest {
		return nil, domain.ErrValidation("risk_level must be between %d and %d",
			domain.RiskLevelHighest, domain.RiskLevelLowest)
	}
	if c.ID == "" {
		c.ID = domain.NewID()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO classifications (id, code, display_name, risk_level, is_system)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code)
		DO UPDATE SET display_name = excluded.display_name,
		              risk_level = excluded.risk_level,
		              is_system = excluded.is_system
	`, c.ID, c.Code, c.DisplayName, c.RiskLevel, boolToInt(c.IsSystem))
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByCode(ctx, c.Code)
}

// GetByID returns a classification by ID.
func (r *ClassificationRepo) GetByID(ctx context.Context, id string) (*domain.AccountClassification, error) {
	return r.getOne(ctx, `
		SELECT id, code, display_name, risk_level, is_system, created_at
		FROM classifications WHERE id = ?
	`, id)
}

// GetByCode returns a classification by its immutable code.
func (r *ClassificationRepo) GetByCode(ctx context.Context, code string) (*domain.AccountClassification, error) {
	return r.getOne(ctx, `
		SELECT id, code, display_name, risk_level, is_system, created_at
		FROM classifications WHERE code = ?
	`, code)
}

// List returns all classifications ordered by risk, highest first.
func (r *ClassificationRepo) List(ctx context.Context) ([]domain.AccountClassification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, display_name, risk_level, is_system, created_at
		FROM classifications ORDER BY risk_level, code
	`)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.AccountClassification
	for rows.Next() {
		c, err := scanClassification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *ClassificationRepo) getOne(ctx context.Context, query string, arg interface{}) (*domain.AccountClassification, error) {
	c, err := scanClassification(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, mapDBError(err)
	}
	return c, nil
}

func scanClassification(row rowScanner) (*domain.AccountClassification, error) {
	var c domain.AccountClassification
	var isSystem int64
	var createdAt string
	if err := row.Scan(&c.ID, &c.Code, &c.DisplayName, &c.RiskLevel, &isSystem, &createdAt); err != nil {
		return nil, err
	}
	c.IsSystem = isSystem != 0
	c.CreatedAt = parseDBTime(createdAt)
	return &c, nil
}
