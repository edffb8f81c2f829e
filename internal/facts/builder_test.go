package facts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbfleet/internal/domain"
)

func mysqlSnapshot(global []interface{}) *domain.PermissionSnapshot {
	return &domain.PermissionSnapshot{
		ID:        "snap-1",
		AccountID: "acct-1",
		Version:   domain.SnapshotVersion,
		Categories: map[string]interface{}{
			domain.CategoryGlobalPrivileges: global,
			domain.CategoryDatabasePrivileges: map[string]interface{}{
				"orders": []interface{}{"SELECT", "UPDATE"},
			},
			domain.CategoryRoles: []interface{}{"app_rw"},
		},
		Meta: domain.SnapshotMeta{CollectedAt: time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC)},
	}
}

func TestBuild_FlattensMixedPrivilegeForms(t *testing.T) {
	snap := mysqlSnapshot([]interface{}{
		"SELECT",
		map[string]interface{}{"privilege": "GRANT OPTION", "granted": true},
		map[string]interface{}{"privilege": "SUPER", "granted": false},
	})

	f, err := Build(snap, domain.DBTypeMySQL)
	require.NoError(t, err)

	global := f.ScopeSet(domain.ScopeGlobal)
	assert.True(t, global.Equal(domain.NewPrivilegeSet("SELECT", "GRANT OPTION")))
}

func TestBuild_PerDatabaseScopes(t *testing.T) {
	f, err := Build(mysqlSnapshot([]interface{}{"SELECT"}), domain.DBTypeMySQL)
	require.NoError(t, err)

	assert.True(t, f.ScopeSet("orders").Equal(domain.NewPrivilegeSet("SELECT", "UPDATE")))
	assert.Empty(t, f.ScopeSet("missing-db"))
}

func TestBuild_Deterministic(t *testing.T) {
	snap := mysqlSnapshot([]interface{}{
		"INSERT",
		"SELECT",
		map[string]interface{}{"privilege": "GRANT OPTION", "granted": true},
	})

	a, err := Build(snap, domain.DBTypeMySQL)
	require.NoError(t, err)
	b, err := Build(snap, domain.DBTypeMySQL)
	require.NoError(t, err)

	assert.True(t, a.Capabilities.Equal(b.Capabilities))
	require.Equal(t, len(a.PrivilegeSets), len(b.PrivilegeSets))
	for scope, set := range a.PrivilegeSets {
		assert.True(t, set.Equal(b.PrivilegeSets[scope]), "scope %s", scope)
	}
	assert.Equal(t, a.CollectedAt, b.CollectedAt)
}

func TestBuild_CaseSensitiveMembership(t *testing.T) {
	f, err := Build(mysqlSnapshot([]interface{}{"grant option"}), domain.DBTypeMySQL)
	require.NoError(t, err)

	global := f.ScopeSet(domain.ScopeGlobal)
	assert.True(t, global.Has("grant option"))
	assert.False(t, global.Has("GRANT OPTION"), "no implicit case folding")
	assert.False(t, f.Capabilities.Has(domain.CapCanGrant))
}

func TestBuild_MySQLCapabilities(t *testing.T) {
	snap := mysqlSnapshot([]interface{}{"GRANT OPTION", "SUPER", "CREATE USER"})
	snap.TypeSpecific = map[string]interface{}{"host": "%", "account_locked": true, "version": 1}

	f, err := Build(snap, domain.DBTypeMySQL)
	require.NoError(t, err)

	assert.True(t, f.Capabilities.Has(domain.CapCanGrant))
	assert.True(t, f.Capabilities.Has(domain.CapIsSuperuser))
	assert.True(t, f.Capabilities.Has(domain.CapCreateUser))
	assert.True(t, f.Capabilities.Has(domain.CapIsLocked))
	assert.False(t, f.Capabilities.Has(domain.CapCanReplicate))
}

func TestBuild_PostgreSQLCapabilities(t *testing.T) {
	snap := &domain.PermissionSnapshot{
		Version: domain.SnapshotVersion,
		Categories: map[string]interface{}{
			domain.CategoryGlobalPrivileges: []interface{}{"CREATEROLE"},
		},
	}

	f, err := Build(snap, domain.DBTypePostgreSQL)
	require.NoError(t, err)

	assert.True(t, f.Capabilities.Has(domain.CapCanGrant))
	assert.True(t, f.Capabilities.Has(domain.CapCreateUser))
	assert.False(t, f.Capabilities.Has(domain.CapIsSuperuser))
}

func TestBuild_SQLServerSysadmin(t *testing.T) {
	snap := &domain.PermissionSnapshot{
		Version: domain.SnapshotVersion,
		Categories: map[string]interface{}{
			domain.CategoryServerRoles: []interface{}{"sysadmin"},
		},
	}

	f, err := Build(snap, domain.DBTypeSQLServer)
	require.NoError(t, err)

	assert.True(t, f.Capabilities.Has(domain.CapSysadmin))
	assert.True(t, f.Capabilities.Has(domain.CapIsSuperuser))
	assert.True(t, f.Capabilities.Has(domain.CapCanGrant))
}

func TestBuild_OracleSystemPrivilegesFeedGlobalScope(t *testing.T) {
	snap := &domain.PermissionSnapshot{
		Version: domain.SnapshotVersion,
		Categories: map[string]interface{}{
			domain.CategorySystemPrivileges: []interface{}{"GRANT ANY PRIVILEGE"},
			domain.CategoryRoles:            []interface{}{"DBA"},
		},
	}

	f, err := Build(snap, domain.DBTypeOracle)
	require.NoError(t, err)

	assert.True(t, f.ScopeSet(domain.ScopeGlobal).Has("GRANT ANY PRIVILEGE"))
	assert.True(t, f.Capabilities.Has(domain.CapIsDBA))
	assert.True(t, f.Capabilities.Has(domain.CapCanGrant))
}

func TestBuild_UnknownEngineEmptyCapabilities(t *testing.T) {
	snap := mysqlSnapshot([]interface{}{"SELECT"})

	f, err := Build(snap, "db2")
	require.NoError(t, err)
	assert.Empty(t, f.Capabilities)
	// Privilege scopes still flatten so the account remains displayable.
	assert.True(t, f.ScopeSet(domain.ScopeGlobal).Has("SELECT"))
}

func TestBuild_NilSnapshot(t *testing.T) {
	_, err := Build(nil, domain.DBTypeMySQL)
	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestBuild_StructuredEntryWithoutGrantedFlagSkipped(t *testing.T) {
	f, err := Build(mysqlSnapshot([]interface{}{
		map[string]interface{}{"privilege": "SELECT"},
	}), domain.DBTypeMySQL)
	require.NoError(t, err)
	assert.Empty(t, f.ScopeSet(domain.ScopeGlobal))
}
