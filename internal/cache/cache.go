// Package cache memoizes active rule sets and per-account facts for
// classification passes. Entries never expire on their own: staleness is a
// correctness bug, so every code path that writes a rule or a snapshot must
// invalidate the matching key. Each granularity — all rules, rules for one
// engine type, facts for one account — is independently addressable.
package cache

import (
	"sync"

	"dbfleet/internal/domain"
)

// Store is a concurrency-safe cache for rule sets and account facts.
// Reads take the shared lock; invalidation serializes against reads so a
// pass never observes a partially-updated rule set.
type Store struct {
	mu    sync.RWMutex
	rules map[string][]domain.ClassificationRule
	facts map[string]*domain.PermissionFacts
}

// New creates an empty cache store.
func New() *Store {
	return &Store{
		rules: make(map[string][]domain.ClassificationRule),
		facts: make(map[string]*domain.PermissionFacts),
	}
}

// Rules returns the cached active rule set for a db_type.
func (s *Store) Rules(dbType string) ([]domain.ClassificationRule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules, ok := s.rules[dbType]
	return rules, ok
}

// SetRules caches the active rule set for a db_type.
func (s *Store) SetRules(dbType string, rules []domain.ClassificationRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[dbType] = rules
}

// Facts returns the cached facts for an account.
func (s *Store) Facts(accountID string) (*domain.PermissionFacts, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.facts[accountID]
	return f, ok
}

// SetFacts caches facts for an account. The facts carry the source
// snapshot's collection timestamp, so callers holding a newer snapshot can
// detect a stale entry that a missed invalidation left behind.
func (s *Store) SetFacts(f *domain.PermissionFacts) {
	if f == nil || f.AccountID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts[f.AccountID] = f
}

// InvalidateAllRules clears every cached rule set.
func (s *Store) InvalidateAllRules() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = make(map[string][]domain.ClassificationRule)
}

// InvalidateRules clears the cached rule set for one db_type.
func (s *Store) InvalidateRules(dbType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules, dbType)
}

// InvalidateFacts clears the cached facts for one account.
func (s *Store) InvalidateFacts(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.facts, accountID)
}

// Flush clears everything. Coarse fallback for operational tooling, never
// a substitute for the targeted paths.
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = make(map[string][]domain.ClassificationRule)
	s.facts = make(map[string]*domain.PermissionFacts)
}
