package facts

import "dbfleet/internal/domain"

// capabilityRule derives one normalized capability token from the snapshot
// and the already-flattened privilege scopes.
type capabilityRule struct {
	capability string
	pred       func(snap *domain.PermissionSnapshot, f *domain.PermissionFacts) bool
}

func globalHas(f *domain.PermissionFacts, names ...string) bool {
	set := f.ScopeSet(domain.ScopeGlobal)
	for _, n := range names {
		if set.Has(n) {
			return true
		}
	}
	return false
}

// capabilityTable is the fixed, engine-specific capability derivation
// table. Engines not listed here produce an empty capability set.
var capabilityTable = map[string][]capabilityRule{
	domain.DBTypeMySQL: {
		{domain.CapCanGrant, func(_ *domain.PermissionSnapshot, f *domain.PermissionFacts) bool {
			return globalHas(f, "GRANT OPTION")
		}},
		{domain.CapIsSuperuser, func(_ *domain.PermissionSnapshot, f *domain.PermissionFacts) bool {
			return globalHas(f, "SUPER", "ALL PRIVILEGES")
		}},
		{domain.CapCreateUser, func(_ *domain.PermissionSnapshot, f *domain.PermissionFacts) bool {
			return globalHas(f, "CREATE USER")
		}},
		{domain.CapCanReplicate, func(_ *domain.PermissionSnapshot, f *domain.PermissionFacts) bool {
			return globalHas(f, "REPLICATION SLAVE")
		}},
		{domain.CapIsLocked, func(snap *domain.PermissionSnapshot, _ *domain.PermissionFacts) bool {
			return typeSpecificBool(snap, "account_locked")
		}},
	},
	domain.DBTypePostgreSQL: {
		{domain.CapIsSuperuser, func(_ *domain.PermissionSnapshot, f *domain.PermissionFacts) bool {
			return globalHas(f, "SUPERUSER")
		}},
		{domain.CapCanGrant, func(_ *domain.PermissionSnapshot, f *domain.PermissionFacts) bool {
			return globalHas(f, "SUPERUSER", "CREATEROLE")
		}},
		{domain.CapCreateUser, func(_ *domain.PermissionSnapshot, f *domain.PermissionFacts) bool {
			return globalHas(f, "CREATEROLE")
		}},
		{domain.CapCanReplicate, func(_ *domain.PermissionSnapshot, f *domain.PermissionFacts) bool {
			return globalHas(f, "REPLICATION")
		}},
	},
	domain.DBTypeSQLServer: {
		{domain.CapSysadmin, func(snap *domain.PermissionSnapshot, _ *domain.PermissionFacts) bool {
			return categorySet(snap, domain.CategoryServerRoles).Has("sysadmin")
		}},
		{domain.CapIsSuperuser, func(snap *domain.PermissionSnapshot, f *domain.PermissionFacts) bool {
			return categorySet(snap, domain.CategoryServerRoles).Has("sysadmin") ||
				globalHas(f, "CONTROL SERVER")
		}},
		{domain.CapCanGrant, func(snap *domain.PermissionSnapshot, f *domain.PermissionFacts) bool {
			roles := categorySet(snap, domain.CategoryServerRoles)
			return roles.Has("sysadmin") || roles.Has("securityadmin") ||
				globalHas(f, "CONTROL SERVER")
		}},
		{domain.CapCreateUser, func(snap *domain.PermissionSnapshot, _ *domain.PermissionFacts) bool {
			roles := categorySet(snap, domain.CategoryServerRoles)
			return roles.Has("sysadmin") || roles.Has("securityadmin")
		}},
	},
	domain.DBTypeOracle: {
		{domain.CapIsDBA, func(snap *domain.PermissionSnapshot, _ *domain.PermissionFacts) bool {
			return categorySet(snap, domain.CategoryRoles).Has("DBA")
		}},
		{domain.CapCanGrant, func(_ *domain.PermissionSnapshot, f *domain.PermissionFacts) bool {
			return globalHas(f, "GRANT ANY PRIVILEGE", "GRANT ANY ROLE")
		}},
		{domain.CapCreateUser, func(_ *domain.PermissionSnapshot, f *domain.PermissionFacts) bool {
			return globalHas(f, "CREATE USER")
		}},
	},
}
