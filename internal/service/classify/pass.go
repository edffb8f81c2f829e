package classify

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"dbfleet/internal/domain"
	"dbfleet/internal/facts"
	"dbfleet/internal/ruleeval"
)

// statsKey identifies one daily match counter.
type statsKey struct {
	ruleID     string
	instanceID string
}

// passState accumulates counters across the bounded worker fanout.
type passState struct {
	mu        sync.Mutex
	created   int
	updated   int
	unchanged int
	skipped   int
	matches   map[statsKey]*domain.DailyMatchStats
}

func (p *passState) entry(statDate string, rule *domain.ClassificationRule, instanceID string) *domain.DailyMatchStats {
	key := statsKey{ruleID: rule.ID, instanceID: instanceID}
	e, ok := p.matches[key]
	if !ok {
		e = &domain.DailyMatchStats{
			StatDate:         statDate,
			RuleID:           rule.ID,
			ClassificationID: rule.ClassificationID,
			DBType:           rule.DBType,
			InstanceID:       instanceID,
		}
		p.matches[key] = e
	}
	return e
}

func (p *passState) countMatch(statDate string, rule *domain.ClassificationRule, instanceID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entry(statDate, rule, instanceID).MatchedCount++
}

// seedZeroCounts pre-creates a zero entry for every (rule, instance) key so
// a rule that matched earlier today but matches nothing now overwrites its
// stale count instead of keeping it.
func (p *passState) seedZeroCounts(statDate string, rules []domain.ClassificationRule, instances []domain.Instance) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range rules {
		for j := range instances {
			p.entry(statDate, &rules[i], instances[j].ID)
		}
	}
}

// RunPass evaluates every account of one engine type against the active
// rule set and reconciles assignments. At most one pass per engine type
// runs at a time; a second invocation fails fast instead of queueing.
// Per-account failures are logged and counted as skipped, never fatal.
func (s *Service) RunPass(ctx context.Context, dbType string) (*domain.ClassificationRun, error) {
	if !domain.ValidDBType(dbType) {
		return nil, domain.ErrValidation("unknown db_type %q", dbType)
	}

	lock := s.runLock(dbType)
	if !lock.TryLock() {
		return nil, domain.ErrConflict("a classification pass for %s is already running", dbType)
	}
	defer lock.Unlock()

	run, err := s.runs.Create(ctx, &domain.ClassificationRun{DBType: dbType})
	if err != nil {
		return nil, err
	}

	rules, err := s.activeRules(ctx, dbType)
	if err != nil {
		return s.finishFailed(ctx, run, err)
	}
	accounts, err := s.accounts.ListByDBType(ctx, dbType)
	if err != nil {
		return s.finishFailed(ctx, run, err)
	}

	if len(rules) == 0 || len(accounts) == 0 {
		run.Status = domain.RunStatusNothingToDo
		if err := s.runs.Finish(ctx, run); err != nil {
			return nil, err
		}
		s.logger.Info("nothing to classify",
			"db_type", dbType, "rules", len(rules), "accounts", len(accounts))
		return run, nil
	}

	// The rollout flag is read once here; a flag flip mid-pass never mixes
	// evaluators within one pass.
	evaluator := ruleeval.ForFlag(s.opts.DSLV4)
	statDate := time.Now().UTC().Format("2006-01-02")
	state := &passState{matches: make(map[statsKey]*domain.DailyMatchStats)}

	instances, err := s.instances.ListByDBType(ctx, dbType)
	if err != nil {
		return s.finishFailed(ctx, run, err)
	}
	state.seedZeroCounts(statDate, rules, instances)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i := range accounts {
		acct := accounts[i]
		g.Go(func() error {
			if s.limiter != nil {
				if err := s.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			s.classifyOne(gctx, evaluator, rules, &acct, statDate, state)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return s.finishFailed(ctx, run, err)
	}

	for _, entry := range state.matches {
		if err := s.stats.Upsert(ctx, entry); err != nil {
			return s.finishFailed(ctx, run, err)
		}
	}

	run.Status = domain.RunStatusCompleted
	run.Created = state.created
	run.Updated = state.updated
	run.Unchanged = state.unchanged
	run.Skipped = state.skipped
	if err := s.runs.Finish(ctx, run); err != nil {
		return nil, err
	}

	s.logger.Info("classification pass finished",
		"db_type", dbType,
		"evaluator", evaluator.Name(),
		"accounts", len(accounts),
		"created", run.Created,
		"updated", run.Updated,
		"unchanged", run.Unchanged,
		"skipped", run.Skipped,
	)
	return run, nil
}

// classifyOne evaluates one account against the rule set and reconciles
// its assignment. Every matching rule is counted for stats; the assignment
// goes to the first match in priority order.
func (s *Service) classifyOne(
	ctx context.Context,
	evaluator ruleeval.Evaluator,
	rules []domain.ClassificationRule,
	acct *domain.Account,
	statDate string,
	state *passState,
) {
	f, err := s.accountFacts(ctx, acct)
	if err != nil {
		var notFound *domain.NotFoundError
		if !errors.As(err, &notFound) {
			s.logger.Warn("skipping account, facts unavailable",
				"account_id", acct.ID, "username", acct.Username, "error", err)
		}
		state.mu.Lock()
		state.skipped++
		state.mu.Unlock()
		return
	}

	var winner *domain.ClassificationRule
	for i := range rules {
		rule := &rules[i]
		if rule.ExpressionErr != "" {
			s.logger.Warn("skipping rule with unparseable expression",
				"rule_id", rule.ID, "name", rule.Name, "error", rule.ExpressionErr)
			continue
		}
		result, err := evaluator.Evaluate(f, rule)
		if err != nil {
			s.logger.Warn("rule evaluation failed",
				"rule_id", rule.ID, "name", rule.Name, "account_id", acct.ID, "error", err)
			continue
		}
		if !result.Matched {
			continue
		}
		state.countMatch(statDate, rule, acct.InstanceID)
		if winner == nil {
			winner = rule
		}
	}

	if winner == nil {
		if err := s.assignments.DeleteByAccount(ctx, acct.ID); err != nil {
			s.logger.Warn("clearing assignment failed", "account_id", acct.ID, "error", err)
			state.mu.Lock()
			state.skipped++
			state.mu.Unlock()
		}
		return
	}

	created, changed, err := s.assignments.Upsert(ctx, &domain.ClassificationAssignment{
		AccountID:        acct.ID,
		ClassificationID: winner.ClassificationID,
		RuleID:           winner.ID,
	})
	if err != nil {
		s.logger.Warn("assignment upsert failed", "account_id", acct.ID, "error", err)
		state.mu.Lock()
		state.skipped++
		state.mu.Unlock()
		return
	}

	state.mu.Lock()
	switch {
	case created:
		state.created++
	case changed:
		state.updated++
	default:
		state.unchanged++
	}
	state.mu.Unlock()
}

// activeRules returns the rule set for one engine type, from cache when
// warm.
func (s *Service) activeRules(ctx context.Context, dbType string) ([]domain.ClassificationRule, error) {
	if rules, ok := s.cache.Rules(dbType); ok {
		return rules, nil
	}
	rules, err := s.rules.ListActive(ctx, dbType)
	if err != nil {
		return nil, err
	}
	s.cache.SetRules(dbType, rules)
	return rules, nil
}

// accountFacts returns the derived facts for one account, from cache when
// warm. A NotFoundError means the account has never been collected.
func (s *Service) accountFacts(ctx context.Context, acct *domain.Account) (*domain.PermissionFacts, error) {
	if f, ok := s.cache.Facts(acct.ID); ok {
		return f, nil
	}
	snap, err := s.snapshots.GetByAccount(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	f, err := facts.Build(snap, s.accountDBType(ctx, acct))
	if err != nil {
		return nil, err
	}
	s.cache.SetFacts(f)
	return f, nil
}

// accountDBType resolves the engine type of the account's instance.
// Accounts are only listed per engine type, so a resolution failure is a
// data inconsistency and falls back to no capability derivation.
func (s *Service) accountDBType(ctx context.Context, acct *domain.Account) string {
	// Accounts reach a pass via ListByDBType, so the instance exists; this
	// indirection only matters for direct Explain calls.
	inst, err := s.instanceOf(ctx, acct)
	if err != nil {
		return ""
	}
	return inst.DBType
}

func (s *Service) instanceOf(ctx context.Context, acct *domain.Account) (*domain.Instance, error) {
	return s.instances.GetByID(ctx, acct.InstanceID)
}

// finishFailed records a failed run and returns the original error.
func (s *Service) finishFailed(ctx context.Context, run *domain.ClassificationRun, cause error) (*domain.ClassificationRun, error) {
	run.Status = domain.RunStatusFailed
	if err := s.runs.Finish(ctx, run); err != nil {
		s.logger.Error("recording failed run", "run_id", run.ID, "error", err)
	}
	return nil, cause
}
