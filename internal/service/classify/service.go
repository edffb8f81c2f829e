// Package classify owns the classification pass and the rule store's write
// paths. Rule writes are append-only: every edit lands as a new immutable
// version, and every write invalidates the cached rule set for the affected
// engine type so the next pass evaluates the new version.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"dbfleet/internal/cache"
	"dbfleet/internal/domain"
)

// Options tune pass execution. Zero values fall back to safe defaults.
type Options struct {
	// DSLV4 selects the DSL evaluator; false selects the legacy capability
	// matcher. Read once at the start of each pass.
	DSLV4 bool

	// Concurrency bounds per-account parallelism inside a pass.
	Concurrency int

	// EvalRPS throttles account evaluations per second. Zero disables the
	// limiter.
	EvalRPS float64
}

// Service runs classification passes and manages the rule store.
type Service struct {
	rules       domain.RuleRepository
	classes     domain.ClassificationRepository
	instances   domain.InstanceRepository
	accounts    domain.AccountRepository
	snapshots   domain.SnapshotRepository
	assignments domain.AssignmentRepository
	stats       domain.StatsRepository
	runs        domain.RunRepository
	audit       domain.AuditRepository
	cache       *cache.Store
	opts        Options
	logger      *slog.Logger
	limiter     *rate.Limiter

	// One lock per engine type: at most one pass per db_type at a time.
	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewService creates a classify service.
func NewService(
	rules domain.RuleRepository,
	classes domain.ClassificationRepository,
	instances domain.InstanceRepository,
	accounts domain.AccountRepository,
	snapshots domain.SnapshotRepository,
	assignments domain.AssignmentRepository,
	stats domain.StatsRepository,
	runs domain.RunRepository,
	audit domain.AuditRepository,
	cache *cache.Store,
	opts Options,
	logger *slog.Logger,
) *Service {
	if opts.Concurrency < 1 {
		opts.Concurrency = 8
	}
	s := &Service{
		rules:       rules,
		classes:     classes,
		instances:   instances,
		accounts:    accounts,
		snapshots:   snapshots,
		assignments: assignments,
		stats:       stats,
		runs:        runs,
		audit:       audit,
		cache:       cache,
		opts:        opts,
		logger:      logger.With("component", "classify"),
		locks:       make(map[string]*sync.Mutex),
	}
	if opts.EvalRPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.EvalRPS), 1)
	}
	return s
}

// runLock returns the lock for one engine type, creating it on first use.
func (s *Service) runLock(dbType string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[dbType]
	if !ok {
		l = &sync.Mutex{}
		s.locks[dbType] = l
	}
	return l
}

// CreateRule creates version 1 of a new rule and invalidates the cached
// rule set for its engine type.
func (s *Service) CreateRule(ctx context.Context, rule *domain.ClassificationRule) (*domain.ClassificationRule, error) {
	if err := s.resolveClassification(ctx, rule); err != nil {
		return nil, err
	}
	created, err := s.rules.Create(ctx, rule)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateRules(created.DBType)
	s.auditRule(ctx, "RULE_CREATE", created)
	return created, nil
}

// NewRuleVersion supersedes the current version of a rule group with a new
// one. The prior version's expression is never touched.
func (s *Service) NewRuleVersion(ctx context.Context, groupID string, rule *domain.ClassificationRule) (*domain.ClassificationRule, error) {
	if err := s.resolveClassification(ctx, rule); err != nil {
		return nil, err
	}
	next, err := s.rules.NewVersion(ctx, groupID, rule)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateRules(next.DBType)
	s.auditRule(ctx, "RULE_NEW_VERSION", next)
	return next, nil
}

// SetRuleActive enables or disables a rule group without creating a new
// version.
func (s *Service) SetRuleActive(ctx context.Context, groupID string, active bool) error {
	rule, err := s.rules.GetCurrent(ctx, groupID)
	if err != nil {
		return err
	}
	if err := s.rules.SetActive(ctx, groupID, active); err != nil {
		return err
	}
	s.cache.InvalidateRules(rule.DBType)
	action := "RULE_DEACTIVATE"
	if active {
		action = "RULE_ACTIVATE"
	}
	s.auditRule(ctx, action, rule)
	return nil
}

// ListActiveRules returns the current, active rule versions for one engine
// type in evaluation order.
func (s *Service) ListActiveRules(ctx context.Context, dbType string) ([]domain.ClassificationRule, error) {
	return s.rules.ListActive(ctx, dbType)
}

// ListRuleVersions returns the full version history of one rule group.
func (s *Service) ListRuleVersions(ctx context.Context, groupID string) ([]domain.ClassificationRule, error) {
	return s.rules.ListVersions(ctx, groupID)
}

// resolveClassification accepts a classification code in place of an ID,
// which is what the CLI and rules files supply.
func (s *Service) resolveClassification(ctx context.Context, rule *domain.ClassificationRule) error {
	if rule.ClassificationID == "" {
		return domain.ErrValidation("classification is required")
	}
	if _, err := s.classes.GetByID(ctx, rule.ClassificationID); err == nil {
		return nil
	}
	c, err := s.classes.GetByCode(ctx, rule.ClassificationID)
	if err != nil {
		return domain.ErrValidation("unknown classification %q", rule.ClassificationID)
	}
	rule.ClassificationID = c.ID
	return nil
}

// auditRule records a rule store write. Best-effort: an audit failure never
// fails the write it describes.
func (s *Service) auditRule(ctx context.Context, action string, rule *domain.ClassificationRule) {
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Actor:  "system",
		Action: action,
		Entity: fmt.Sprintf("rule/%s", rule.GroupID),
		Detail: fmt.Sprintf("name=%s db_type=%s version=%d", rule.Name, rule.DBType, rule.Version),
	})
}
