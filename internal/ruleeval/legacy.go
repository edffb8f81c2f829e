package ruleeval

import "dbfleet/internal/domain"

// LegacyEvaluator is the pre-DSL matcher retained behind the rollout flag.
// A rule matches iff the account's facts contain the rule's single
// capability token. It is coarser than the DSL engine but keeps running
// against existing snapshots without re-collection when the flag is off.
type LegacyEvaluator struct{}

// NewLegacyEvaluator creates the legacy capability matcher.
func NewLegacyEvaluator() *LegacyEvaluator {
	return &LegacyEvaluator{}
}

func (e *LegacyEvaluator) Name() string { return "legacy" }

// Evaluate matches facts against the rule's legacy capability token. A rule
// without a token is DSL-only and never matches under the legacy path.
func (e *LegacyEvaluator) Evaluate(f *domain.PermissionFacts, rule *domain.ClassificationRule) (*MatchResult, error) {
	if rule == nil {
		return nil, domain.ErrValidation("rule is required")
	}

	clause := ClauseResult{
		Clause:   ClauseLegacyCapability,
		Operator: domain.OperatorOr,
	}
	if rule.LegacyCapability == "" {
		return &MatchResult{Matched: false, Clauses: []ClauseResult{clause}}, nil
	}

	clause.Required = []string{rule.LegacyCapability}
	if f.Capabilities.Has(rule.LegacyCapability) {
		clause.Satisfied = clause.Required
		clause.Matched = true
	} else {
		clause.Missing = clause.Required
	}

	return &MatchResult{Matched: clause.Matched, Clauses: []ClauseResult{clause}}, nil
}
