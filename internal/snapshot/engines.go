package snapshot

import "dbfleet/internal/domain"

// Each sub-normalizer translates one adapter's field names into the
// canonical category set for its engine. Category keys are a closed,
// engine-dependent set; a field the normalizer does not understand fails
// the snapshot rather than being silently dropped or emptied.

// normalizeMySQL maps the MySQL adapter payload:
//
//	global_privs  -> global_privileges
//	db_privs      -> database_privileges
//	roles         -> roles
//
// A role_closure=false marker means the adapter could not expand role
// membership transitively; that is degraded-but-known input.
func normalizeMySQL(data map[string]interface{}, warnings *[]string) (map[string]interface{}, error) {
	if err := closedFieldSet(data, "global_privs", "db_privs", "roles", "role_closure"); err != nil {
		return nil, err
	}
	global, err := privilegeList(data, "global_privs", warnings)
	if err != nil {
		return nil, err
	}
	dbPrivs, err := databaseMap(data, "db_privs", warnings)
	if err != nil {
		return nil, err
	}
	roles, err := privilegeList(data, "roles", warnings)
	if err != nil {
		return nil, err
	}
	if closure, present := data["role_closure"]; present {
		if enabled, ok := closure.(bool); ok && !enabled {
			*warnings = appendWarning(*warnings, domain.WarnRoleClosureDisabled)
		}
	}
	return map[string]interface{}{
		domain.CategoryGlobalPrivileges:   global,
		domain.CategoryDatabasePrivileges: dbPrivs,
		domain.CategoryRoles:              roles,
	}, nil
}

// normalizePostgreSQL maps the PostgreSQL adapter payload:
//
//	role_attributes -> global_privileges (SUPERUSER, CREATEROLE, ...)
//	database_privs  -> database_privileges
//	memberships     -> roles
func normalizePostgreSQL(data map[string]interface{}, warnings *[]string) (map[string]interface{}, error) {
	if err := closedFieldSet(data, "role_attributes", "database_privs", "memberships"); err != nil {
		return nil, err
	}
	attrs, err := privilegeList(data, "role_attributes", warnings)
	if err != nil {
		return nil, err
	}
	dbPrivs, err := databaseMap(data, "database_privs", warnings)
	if err != nil {
		return nil, err
	}
	memberships, err := privilegeList(data, "memberships", warnings)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		domain.CategoryGlobalPrivileges:   attrs,
		domain.CategoryDatabasePrivileges: dbPrivs,
		domain.CategoryRoles:              memberships,
	}, nil
}

// normalizeSQLServer maps the SQL Server adapter payload:
//
//	server_permissions   -> global_privileges (CONTROL SERVER, ...)
//	database_permissions -> database_privileges
//	server_roles         -> server_roles (sysadmin, securityadmin, ...)
//	database_roles       -> roles
func normalizeSQLServer(data map[string]interface{}, warnings *[]string) (map[string]interface{}, error) {
	if err := closedFieldSet(data, "server_permissions", "database_permissions", "server_roles", "database_roles"); err != nil {
		return nil, err
	}
	serverPerms, err := privilegeList(data, "server_permissions", warnings)
	if err != nil {
		return nil, err
	}
	dbPerms, err := databaseMap(data, "database_permissions", warnings)
	if err != nil {
		return nil, err
	}
	serverRoles, err := privilegeList(data, "server_roles", warnings)
	if err != nil {
		return nil, err
	}
	dbRoles, err := privilegeList(data, "database_roles", warnings)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		domain.CategoryGlobalPrivileges:   serverPerms,
		domain.CategoryDatabasePrivileges: dbPerms,
		domain.CategoryServerRoles:        serverRoles,
		domain.CategoryRoles:              dbRoles,
	}, nil
}

// normalizeOracle maps the Oracle adapter payload:
//
//	system_privs -> system_privileges (GRANT ANY PRIVILEGE, ...)
//	granted_roles -> roles (DBA, RESOURCE, ...)
//
// Oracle has no per-database privilege scope; system privileges feed the
// global scope at facts-building time.
func normalizeOracle(data map[string]interface{}, warnings *[]string) (map[string]interface{}, error) {
	if err := closedFieldSet(data, "system_privs", "granted_roles"); err != nil {
		return nil, err
	}
	sysPrivs, err := privilegeList(data, "system_privs", warnings)
	if err != nil {
		return nil, err
	}
	roles, err := privilegeList(data, "granted_roles", warnings)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		domain.CategorySystemPrivileges: sysPrivs,
		domain.CategoryRoles:            roles,
	}, nil
}
