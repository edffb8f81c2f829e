// Package ruleeval evaluates classification rules against account
// permission facts. Two evaluator implementations exist behind one
// interface: the DSL v4 engine and the legacy capability matcher, selected
// once per pass by a rollout flag.
package ruleeval

import "dbfleet/internal/domain"

// Clause type identifiers used in diagnostics.
const (
	ClauseGlobalPrivileges   = "global_privileges"
	ClauseDatabasePrivileges = "database_privileges"
	ClauseLegacyCapability   = "legacy_capability"
)

// ClauseResult reports, for one clause, which required privileges were
// satisfied and which were missing, so operators can debug a match without
// re-running it by hand.
type ClauseResult struct {
	Clause    string   `json:"clause"`
	Operator  string   `json:"operator"`
	Required  []string `json:"required"`
	Satisfied []string `json:"satisfied,omitempty"`
	Missing   []string `json:"missing,omitempty"`
	Matched   bool     `json:"matched"`
}

// MatchResult is the outcome of evaluating one rule against one account.
type MatchResult struct {
	Matched bool           `json:"matched"`
	Clauses []ClauseResult `json:"clauses,omitempty"`
}

// Evaluator matches one account's facts against one rule. Implementations
// operate purely on in-memory data and perform no I/O.
type Evaluator interface {
	// Evaluate returns a match result with per-clause diagnostics. An
	// empty or absent privilege scope in the facts evaluates as "no
	// privileges match", never as an error.
	Evaluate(f *domain.PermissionFacts, rule *domain.ClassificationRule) (*MatchResult, error)

	// Name identifies the evaluator in logs and run summaries.
	Name() string
}

// ForFlag returns the evaluator selected by the DSL v4 rollout flag.
func ForFlag(dslV4 bool) Evaluator {
	if dslV4 {
		return NewDSLEvaluator()
	}
	return NewLegacyEvaluator()
}
