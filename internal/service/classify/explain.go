package classify

import (
	"context"

	"dbfleet/internal/domain"
	"dbfleet/internal/facts"
	"dbfleet/internal/ruleeval"
)

// Explanation is the replay of one rule against one account: the exact
// rule version, the facts it saw, and the per-clause outcome.
type Explanation struct {
	AccountID string                     `json:"account_id"`
	Rule      *domain.ClassificationRule `json:"-"`
	RuleID    string                     `json:"rule_id"`
	RuleName  string                     `json:"rule_name"`
	Version   int                        `json:"rule_version"`
	Evaluator string                     `json:"evaluator"`
	Result    *ruleeval.MatchResult      `json:"result"`

	// GlobalPrivileges and Capabilities summarize the facts the evaluator
	// saw, in sorted order.
	GlobalPrivileges []string `json:"global_privileges"`
	Capabilities     []string `json:"capabilities"`
}

// Explain re-evaluates one rule version against one account's stored
// snapshot. The rule may be superseded: historical versions replay exactly
// as they matched, because expressions are never edited in place. Facts are
// rebuilt from the stored snapshot rather than read from cache so the
// explanation reflects what a pass would see right now.
func (s *Service) Explain(ctx context.Context, accountID, ruleID string) (*Explanation, error) {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if rule.ExpressionErr != "" {
		return nil, domain.ErrValidation("rule %s has an unparseable expression: %s", ruleID, rule.ExpressionErr)
	}

	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshots.GetByAccount(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	f, err := facts.Build(snap, s.accountDBType(ctx, acct))
	if err != nil {
		return nil, err
	}

	evaluator := ruleeval.ForFlag(s.opts.DSLV4)
	result, err := evaluator.Evaluate(f, rule)
	if err != nil {
		return nil, err
	}

	return &Explanation{
		AccountID:        acct.ID,
		Rule:             rule,
		RuleID:           rule.ID,
		RuleName:         rule.Name,
		Version:          rule.Version,
		Evaluator:        evaluator.Name(),
		Result:           result,
		GlobalPrivileges: f.ScopeSet(domain.ScopeGlobal).Names(),
		Capabilities:     f.Capabilities.Names(),
	}, nil
}
