package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"dbfleet/internal/domain"
)

var _ domain.SnapshotRepository = (*SnapshotRepo)(nil)

// SnapshotRepo stores canonical permission snapshots, one row per account.
// A new collection supersedes the prior row wholesale; there is no partial
// update path.
type SnapshotRepo struct {
	db *sql.DB
}

// NewSnapshotRepo creates a new SnapshotRepo.
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save persists a snapshot for an account, replacing any prior one.
func (r *SnapshotRepo) Save(ctx context.Context, s *domain.PermissionSnapshot) (*domain.PermissionSnapshot, error) {
	if s == nil || s.AccountID == "" {
		return nil, domain.ErrValidation("snapshot with account_id is required")
	}
	if s.Version != domain.SnapshotVersion {
		return nil, domain.ErrSchemaVersion("refusing to store snapshot version %d", s.Version)
	}
	if s.ID == "" {
		s.ID = domain.NewID()
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO permission_snapshots
			(id, account_id, version, payload_json, adapter_name, adapter_version, collected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id)
		DO UPDATE SET id = excluded.id,
		              version = excluded.version,
		              payload_json = excluded.payload_json,
		              adapter_name = excluded.adapter_name,
		              adapter_version = excluded.adapter_version,
		              collected_at = excluded.collected_at
	`, s.ID, s.AccountID, s.Version, string(payload),
		s.Meta.AdapterName, s.Meta.AdapterVersion, s.Meta.CollectedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, mapDBError(err)
	}
	return s, nil
}

// GetByAccount returns the current snapshot for an account.
func (r *SnapshotRepo) GetByAccount(ctx context.Context, accountID string) (*domain.PermissionSnapshot, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `
		SELECT payload_json FROM permission_snapshots WHERE account_id = ?
	`, accountID).Scan(&payload)
	if err != nil {
		return nil, mapDBError(err)
	}

	var s domain.PermissionSnapshot
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot for account %s: %w", accountID, err)
	}
	return &s, nil
}
