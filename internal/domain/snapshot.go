package domain

import "time"

// Database engine type constants.
const (
	DBTypeMySQL      = "mysql"
	DBTypePostgreSQL = "postgresql"
	DBTypeSQLServer  = "sqlserver"
	DBTypeOracle     = "oracle"
)

// SnapshotVersion is the single supported canonical snapshot schema
// version. Payloads carrying any other version are rejected.
const SnapshotVersion = 4

// TypeSpecificVersion is the single supported version of the
// independently-versioned type_specific sub-structure.
const TypeSpecificVersion = 1

// Canonical category names. The set of categories present in a snapshot is
// engine-dependent but always drawn from this closed list.
const (
	CategoryGlobalPrivileges   = "global_privileges"
	CategoryDatabasePrivileges = "database_privileges"
	CategoryRoles              = "roles"
	CategorySchemaPrivileges   = "schema_privileges"
	CategoryServerRoles        = "server_roles"
	CategorySystemPrivileges   = "system_privileges"
)

// Warning codes recorded in a snapshot's errors list. These mark known
// degraded input, as opposed to malformed input which fails normalization.
const (
	WarnRoleClosureDisabled  = "ROLE_CLOSURE_DISABLED"
	WarnPartialGrantDump     = "PARTIAL_GRANT_DUMP"
	WarnUnknownPrivilegeForm = "UNKNOWN_PRIVILEGE_FORM"
)

// SnapshotMeta records which adapter produced a snapshot and when.
type SnapshotMeta struct {
	AdapterName    string    `json:"adapter_name"`
	AdapterVersion string    `json:"adapter_version"`
	CollectedAt    time.Time `json:"collected_at"`
}

// PermissionSnapshot is the canonical, versioned permission record for one
// account at one collection time. It is immutable once stored and is
// superseded wholesale by the next collection.
type PermissionSnapshot struct {
	ID           string                 `json:"id"`
	AccountID    string                 `json:"account_id"`
	Version      int                    `json:"version"`
	Categories   map[string]interface{} `json:"categories"`
	TypeSpecific map[string]interface{} `json:"type_specific,omitempty"`
	Extra        map[string]interface{} `json:"extra,omitempty"`
	Errors       []string               `json:"errors,omitempty"`
	Meta         SnapshotMeta           `json:"meta"`
}

// ValidDBType reports whether t is a supported engine type.
func ValidDBType(t string) bool {
	switch t {
	case DBTypeMySQL, DBTypePostgreSQL, DBTypeSQLServer, DBTypeOracle:
		return true
	}
	return false
}
