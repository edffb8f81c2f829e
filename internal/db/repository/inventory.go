package repository

import (
	"context"
	"database/sql"

	"dbfleet/internal/domain"
)

var (
	_ domain.InstanceRepository = (*InstanceRepo)(nil)
	_ domain.AccountRepository  = (*AccountRepo)(nil)
)

// InstanceRepo stores fleet instances in SQLite.
type InstanceRepo struct {
	db *sql.DB
}

// NewInstanceRepo creates a new InstanceRepo.
func NewInstanceRepo(db *sql.DB) *InstanceRepo {
	return &InstanceRepo{db: db}
}

// Create inserts a new instance.
func (r *InstanceRepo) Create(ctx context.Context, inst *domain.Instance) (*domain.Instance, error) {
	if inst.Name == "" {
		return nil, domain.ErrValidation("instance name is required")
	}
	if !domain.ValidDBType(inst.DBType) {
		return nil, domain.ErrValidation("unknown db_type %q", inst.DBType)
	}
	if inst.ID == "" {
		inst.ID = domain.NewID()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO instances (id, name, db_type, host, port)
		VALUES (?, ?, ?, ?, ?)
	`, inst.ID, inst.Name, inst.DBType, inst.Host, inst.Port)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByID(ctx, inst.ID)
}

// GetByID returns an instance by ID.
func (r *InstanceRepo) GetByID(ctx context.Context, id string) (*domain.Instance, error) {
	return r.getOne(ctx, `SELECT id, name, db_type, host, port, created_at FROM instances WHERE id = ?`, id)
}

// GetByName returns an instance by its unique name.
func (r *InstanceRepo) GetByName(ctx context.Context, name string) (*domain.Instance, error) {
	return r.getOne(ctx, `SELECT id, name, db_type, host, port, created_at FROM instances WHERE name = ?`, name)
}

// ListByDBType returns all instances of one engine type.
func (r *InstanceRepo) ListByDBType(ctx context.Context, dbType string) ([]domain.Instance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, db_type, host, port, created_at
		FROM instances WHERE db_type = ? ORDER BY name
	`, dbType)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inst)
	}
	return out, rows.Err()
}

func (r *InstanceRepo) getOne(ctx context.Context, query string, arg interface{}) (*domain.Instance, error) {
	inst, err := scanInstance(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, mapDBError(err)
	}
	return inst, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInstance(row rowScanner) (*domain.Instance, error) {
	var inst domain.Instance
	var createdAt string
	if err := row.Scan(&inst.ID, &inst.Name, &inst.DBType, &inst.Host, &inst.Port, &createdAt); err != nil {
		return nil, err
	}
	inst.CreatedAt = parseDBTime(createdAt)
	return &inst, nil
}

// AccountRepo stores database accounts in SQLite.
type AccountRepo struct {
	db *sql.DB
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	if a.InstanceID == "" || a.Username == "" {
		return nil, domain.ErrValidation("instance_id and username are required")
	}
	if a.ID == "" {
		a.ID = domain.NewID()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, instance_id, username, host)
		VALUES (?, ?, ?, ?)
	`, a.ID, a.InstanceID, a.Username, a.Host)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByID(ctx, a.ID)
}

// GetByID returns an account by ID.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	var a domain.Account
	var createdAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, instance_id, username, host, created_at FROM accounts WHERE id = ?
	`, id).Scan(&a.ID, &a.InstanceID, &a.Username, &a.Host, &createdAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	a.CreatedAt = parseDBTime(createdAt)
	return &a, nil
}

// ListByInstance returns all accounts on one instance.
func (r *AccountRepo) ListByInstance(ctx context.Context, instanceID string) ([]domain.Account, error) {
	return r.list(ctx, `
		SELECT id, instance_id, username, host, created_at
		FROM accounts WHERE instance_id = ? ORDER BY username, host
	`, instanceID)
}

// ListByDBType returns all accounts on instances of one engine type.
func (r *AccountRepo) ListByDBType(ctx context.Context, dbType string) ([]domain.Account, error) {
	return r.list(ctx, `
		SELECT a.id, a.instance_id, a.username, a.host, a.created_at
		FROM accounts a
		JOIN instances i ON i.id = a.instance_id
		WHERE i.db_type = ?
		ORDER BY a.username, a.host
	`, dbType)
}

func (r *AccountRepo) list(ctx context.Context, query string, arg interface{}) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.Account
	for rows.Next() {
		var a domain.Account
		var createdAt string
		if err := rows.Scan(&a.ID, &a.InstanceID, &a.Username, &a.Host, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt = parseDBTime(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}
