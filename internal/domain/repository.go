package domain

import "context"

// InstanceRepository provides CRUD operations for fleet instances.
type InstanceRepository interface {
	Create(ctx context.Context, inst *Instance) (*Instance, error)
	GetByID(ctx context.Context, id string) (*Instance, error)
	GetByName(ctx context.Context, name string) (*Instance, error)
	ListByDBType(ctx context.Context, dbType string) ([]Instance, error)
}

// AccountRepository provides CRUD operations for database accounts.
type AccountRepository interface {
	Create(ctx context.Context, a *Account) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	ListByInstance(ctx context.Context, instanceID string) ([]Account, error)
	ListByDBType(ctx context.Context, dbType string) ([]Account, error)
}

// SnapshotRepository stores canonical permission snapshots. Save supersedes
// any prior snapshot for the same account wholesale.
type SnapshotRepository interface {
	Save(ctx context.Context, s *PermissionSnapshot) (*PermissionSnapshot, error)
	GetByAccount(ctx context.Context, accountID string) (*PermissionSnapshot, error)
}

// RuleRepository is the append-only rule store. NewVersion never mutates a
// prior version's expression; it marks the prior current version superseded
// and inserts the next version in one transaction.
type RuleRepository interface {
	Create(ctx context.Context, r *ClassificationRule) (*ClassificationRule, error)
	NewVersion(ctx context.Context, groupID string, r *ClassificationRule) (*ClassificationRule, error)
	SetActive(ctx context.Context, groupID string, active bool) error
	GetByID(ctx context.Context, id string) (*ClassificationRule, error)
	GetCurrent(ctx context.Context, groupID string) (*ClassificationRule, error)
	GetCurrentByName(ctx context.Context, dbType, name string) (*ClassificationRule, error)
	ListActive(ctx context.Context, dbType string) ([]ClassificationRule, error)
	ListVersions(ctx context.Context, groupID string) ([]ClassificationRule, error)
}

// ClassificationRepository provides the taxonomy of risk buckets.
type ClassificationRepository interface {
	Upsert(ctx context.Context, c *AccountClassification) (*AccountClassification, error)
	GetByID(ctx context.Context, id string) (*AccountClassification, error)
	GetByCode(ctx context.Context, code string) (*AccountClassification, error)
	List(ctx context.Context) ([]AccountClassification, error)
}

// AssignmentRepository stores classification assignments, one per account.
type AssignmentRepository interface {
	Upsert(ctx context.Context, a *ClassificationAssignment) (created bool, changed bool, err error)
	GetByAccount(ctx context.Context, accountID string) (*ClassificationAssignment, error)
	DeleteByAccount(ctx context.Context, accountID string) error
	ListByClassification(ctx context.Context, classificationID string) ([]ClassificationAssignment, error)
}

// StatsRepository stores daily match aggregates. Upsert overwrites the
// count for an existing (date, rule, db_type, instance) key rather than
// accumulating duplicate rows.
type StatsRepository interface {
	Upsert(ctx context.Context, s *DailyMatchStats) error
	ListByDateRange(ctx context.Context, dbType, from, to string) ([]DailyMatchStats, error)
}

// RunRepository stores classification pass summaries.
type RunRepository interface {
	Create(ctx context.Context, r *ClassificationRun) (*ClassificationRun, error)
	Finish(ctx context.Context, r *ClassificationRun) error
	ListRecent(ctx context.Context, dbType string, limit int) ([]ClassificationRun, error)
}

// AuditRepository records administrative actions. Best-effort: callers
// ignore insert failures rather than failing the audited operation.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]AuditEntry, error)
}
