// Package facts derives the compact, query-optimized projection of a
// permission snapshot that the rule evaluator matches against. Facts are a
// pure function of the snapshot: rebuilding from the same snapshot always
// yields identical set contents.
package facts

import "dbfleet/internal/domain"

// Build derives PermissionFacts from a canonical snapshot. dbType selects
// the capability derivation table; an engine without a table yields an
// empty capability set rather than an error, since facts must always be
// producible for display even when no rule exists for the engine yet.
func Build(snap *domain.PermissionSnapshot, dbType string) (*domain.PermissionFacts, error) {
	if snap == nil {
		return nil, domain.ErrValidation("snapshot is required")
	}

	f := &domain.PermissionFacts{
		AccountID:     snap.AccountID,
		DBType:        dbType,
		Capabilities:  domain.PrivilegeSet{},
		PrivilegeSets: map[string]domain.PrivilegeSet{},
		CollectedAt:   snap.Meta.CollectedAt.UnixNano(),
	}

	global := domain.PrivilegeSet{}
	mergeFlattened(global, snap.Categories[domain.CategoryGlobalPrivileges])
	// Oracle system privileges are server-wide grants; they are the
	// engine's global scope.
	mergeFlattened(global, snap.Categories[domain.CategorySystemPrivileges])
	f.PrivilegeSets[domain.ScopeGlobal] = global

	if dbm, ok := snap.Categories[domain.CategoryDatabasePrivileges].(map[string]interface{}); ok {
		for dbName, entry := range dbm {
			set := domain.PrivilegeSet{}
			mergeFlattened(set, entry)
			f.PrivilegeSets[dbName] = set
		}
	}

	for _, rule := range capabilityTable[dbType] {
		if rule.pred(snap, f) {
			f.Capabilities.Add(rule.capability)
		}
	}

	return f, nil
}

// mergeFlattened folds a category value into a privilege set. A bare string
// entry always contributes its name; a structured entry contributes its
// privilege name only when its granted flag is true. Mixed sequences apply
// both rules element-wise — different adapter generations emit either form
// and both are first-class. Entries of any other shape are skipped; the
// normalizer has already flagged them with a warning code.
func mergeFlattened(set domain.PrivilegeSet, value interface{}) {
	list, ok := value.([]interface{})
	if !ok {
		return
	}
	for _, entry := range list {
		switch e := entry.(type) {
		case string:
			set.Add(e)
		case map[string]interface{}:
			name, ok := e["privilege"].(string)
			if !ok {
				continue
			}
			if granted, ok := e["granted"].(bool); ok && granted {
				set.Add(name)
			}
		}
	}
}

// categorySet flattens a list-valued category on demand for capability
// predicates.
func categorySet(snap *domain.PermissionSnapshot, category string) domain.PrivilegeSet {
	set := domain.PrivilegeSet{}
	mergeFlattened(set, snap.Categories[category])
	return set
}

func typeSpecificBool(snap *domain.PermissionSnapshot, key string) bool {
	if snap.TypeSpecific == nil {
		return false
	}
	b, ok := snap.TypeSpecific[key].(bool)
	return ok && b
}
