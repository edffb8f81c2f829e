package domain

import "sort"

// ScopeGlobal is the privilege-set scope for server-wide privileges.
// Every other scope key is a database name.
const ScopeGlobal = "global"

// Capability tokens derived from snapshots. Capabilities are engine-normalized
// so rules and reports can reason about "can grant" without knowing whether
// the engine spells it GRANT OPTION, WITH ADMIN OPTION, or grant_option.
const (
	CapCanGrant     = "can_grant"
	CapIsSuperuser  = "is_superuser"
	CapCanReplicate = "can_replicate"
	CapCreateUser   = "can_create_user"
	CapIsLocked     = "is_locked"
	CapSysadmin     = "is_sysadmin"
	CapIsDBA        = "is_dba"
)

// PrivilegeSet is a set of privilege or capability names. Membership is
// byte-exact; no case folding is performed.
type PrivilegeSet map[string]struct{}

// NewPrivilegeSet builds a set from the given names.
func NewPrivilegeSet(names ...string) PrivilegeSet {
	s := make(PrivilegeSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is a member of the set.
func (s PrivilegeSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Add inserts name into the set.
func (s PrivilegeSet) Add(name string) {
	s[name] = struct{}{}
}

// Names returns the members in sorted order for stable diagnostics output.
func (s PrivilegeSet) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold exactly the same members.
func (s PrivilegeSet) Equal(other PrivilegeSet) bool {
	if len(s) != len(other) {
		return false
	}
	for n := range s {
		if !other.Has(n) {
			return false
		}
	}
	return true
}

// PermissionFacts is the derived, queryable projection of a snapshot used
// for rule matching. Facts are a pure function of the snapshot: rebuilding
// from the same snapshot always yields identical set contents.
type PermissionFacts struct {
	AccountID     string
	DBType        string
	Capabilities  PrivilegeSet
	PrivilegeSets map[string]PrivilegeSet

	// CollectedAt is the source snapshot's collection timestamp, used as
	// the cache invalidation key for these facts.
	CollectedAt int64
}

// ScopeSet returns the privilege set for a scope, or an empty set when the
// scope is absent. Absence of a scope is a routine condition (account not
// yet collected, no grants at that scope), never an error.
func (f *PermissionFacts) ScopeSet(scope string) PrivilegeSet {
	if f == nil || f.PrivilegeSets == nil {
		return PrivilegeSet{}
	}
	if s, ok := f.PrivilegeSets[scope]; ok {
		return s
	}
	return PrivilegeSet{}
}
