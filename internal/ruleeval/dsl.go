package ruleeval

import "dbfleet/internal/domain"

// DSLEvaluator is the v4 declarative rule engine. Clause types present in
// an expression combine with logical AND; within a clause the declared
// operator (AND/OR, default OR) governs. An empty required-privilege list
// is vacuously satisfied, so a rule with no clauses at all matches every
// account of its db_type — callers guard that by only activating rules
// intended to be broad.
type DSLEvaluator struct{}

// NewDSLEvaluator creates the v4 DSL engine.
func NewDSLEvaluator() *DSLEvaluator {
	return &DSLEvaluator{}
}

func (e *DSLEvaluator) Name() string { return "dsl_v4" }

// Evaluate matches facts against the rule's expression.
func (e *DSLEvaluator) Evaluate(f *domain.PermissionFacts, rule *domain.ClassificationRule) (*MatchResult, error) {
	if rule == nil {
		return nil, domain.ErrValidation("rule is required")
	}
	expr := rule.Expression
	if err := expr.Validate(); err != nil {
		return nil, err
	}

	result := &MatchResult{Matched: true}

	if len(expr.GlobalPrivileges) > 0 {
		clause := evalClause(ClauseGlobalPrivileges, expr.EffectiveOperator(),
			expr.GlobalPrivileges, f.ScopeSet(domain.ScopeGlobal))
		result.Clauses = append(result.Clauses, clause)
		result.Matched = result.Matched && clause.Matched
	}

	if len(expr.DatabasePrivileges) > 0 {
		clause := evalDatabaseClause(expr.EffectiveOperator(), expr.DatabasePrivileges, f)
		result.Clauses = append(result.Clauses, clause)
		result.Matched = result.Matched && clause.Matched
	}

	return result, nil
}

// evalClause resolves one privilege clause against a single scope's actual
// set. An absent scope arrives as an empty set: unresolved or
// not-yet-collected accounts are routine, so nothing here can error.
func evalClause(clauseType, operator string, required []string, actual domain.PrivilegeSet) ClauseResult {
	clause := ClauseResult{
		Clause:   clauseType,
		Operator: operator,
		Required: required,
	}
	for _, name := range required {
		if actual.Has(name) {
			clause.Satisfied = append(clause.Satisfied, name)
		} else {
			clause.Missing = append(clause.Missing, name)
		}
	}
	if operator == domain.OperatorAnd {
		clause.Matched = len(clause.Missing) == 0
	} else {
		clause.Matched = len(clause.Satisfied) > 0
	}
	return clause
}

// evalDatabaseClause evaluates the per-database clause: the clause matches
// when at least one database scope satisfies the operator over the required
// list. Diagnostics report the union of satisfied names across scopes.
func evalDatabaseClause(operator string, required []string, f *domain.PermissionFacts) ClauseResult {
	clause := ClauseResult{
		Clause:   ClauseDatabasePrivileges,
		Operator: operator,
		Required: required,
	}

	satisfied := domain.PrivilegeSet{}
	for scope, actual := range f.PrivilegeSets {
		if scope == domain.ScopeGlobal {
			continue
		}
		sub := evalClause(ClauseDatabasePrivileges, operator, required, actual)
		if sub.Matched {
			clause.Matched = true
		}
		for _, name := range sub.Satisfied {
			satisfied.Add(name)
		}
	}

	clause.Satisfied = satisfied.Names()
	for _, name := range required {
		if !satisfied.Has(name) {
			clause.Missing = append(clause.Missing, name)
		}
	}
	return clause
}
