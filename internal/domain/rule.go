package domain

import "time"

// Rule expression operators.
const (
	OperatorAnd = "AND"
	OperatorOr  = "OR"
)

// RuleExpression is the declarative predicate evaluated against an
// account's facts. database_privileges is evaluated per-database scope and
// is currently reserved; an empty list is a no-op clause.
type RuleExpression struct {
	Operator           string   `json:"operator,omitempty"`
	GlobalPrivileges   []string `json:"global_privileges,omitempty"`
	DatabasePrivileges []string `json:"database_privileges,omitempty"`
}

// EffectiveOperator returns the declared operator, defaulting to OR.
func (e RuleExpression) EffectiveOperator() string {
	if e.Operator == OperatorAnd {
		return OperatorAnd
	}
	return OperatorOr
}

// Validate rejects unknown operators. Privilege lists are free-form names.
func (e RuleExpression) Validate() error {
	switch e.Operator {
	case "", OperatorAnd, OperatorOr:
		return nil
	}
	return ErrValidation("unknown rule operator %q", e.Operator)
}

// ClassificationRule is one immutable version of a named rule. Edits create
// a new version row; prior versions are retained for audit and replay.
type ClassificationRule struct {
	ID               string
	GroupID          string // stable across versions, never reused
	Version          int    // monotonically increasing from 1
	Name             string
	DBType           string
	ClassificationID string
	Priority         int // lower evaluates first
	Expression       RuleExpression

	// LegacyCapability drives the pre-DSL matcher: the rule matches iff the
	// account's facts contain this capability token. Ignored by the DSL
	// evaluator.
	LegacyCapability string

	IsActive     bool
	SupersededAt *time.Time // nil while this version is current
	CreatedAt    time.Time

	// ExpressionErr is set on load when the stored expression document
	// could not be parsed. Such a rule is skipped with a warning for the
	// pass instead of aborting it.
	ExpressionErr string
}

// Current reports whether this version drives live evaluation.
func (r *ClassificationRule) Current() bool {
	return r.IsActive && r.SupersededAt == nil
}
