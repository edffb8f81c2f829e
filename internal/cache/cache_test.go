package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbfleet/internal/domain"
)

func TestStore_RulesRoundTrip(t *testing.T) {
	s := New()

	_, ok := s.Rules(domain.DBTypeMySQL)
	assert.False(t, ok)

	rules := []domain.ClassificationRule{{ID: "r1", DBType: domain.DBTypeMySQL}}
	s.SetRules(domain.DBTypeMySQL, rules)

	got, ok := s.Rules(domain.DBTypeMySQL)
	require.True(t, ok)
	assert.Equal(t, "r1", got[0].ID)
}

func TestStore_EmptyRuleSetIsCached(t *testing.T) {
	s := New()
	s.SetRules(domain.DBTypeOracle, []domain.ClassificationRule{})

	got, ok := s.Rules(domain.DBTypeOracle)
	require.True(t, ok, "a cached empty set is a hit, not a miss")
	assert.Empty(t, got)
}

func TestStore_InvalidateRulesIsTargeted(t *testing.T) {
	s := New()
	s.SetRules(domain.DBTypeMySQL, []domain.ClassificationRule{{ID: "m1"}})
	s.SetRules(domain.DBTypePostgreSQL, []domain.ClassificationRule{{ID: "p1"}})

	s.InvalidateRules(domain.DBTypeMySQL)

	_, ok := s.Rules(domain.DBTypeMySQL)
	assert.False(t, ok)
	_, ok = s.Rules(domain.DBTypePostgreSQL)
	assert.True(t, ok, "other db_types must be untouched")
}

func TestStore_InvalidateAllRulesKeepsFacts(t *testing.T) {
	s := New()
	s.SetRules(domain.DBTypeMySQL, []domain.ClassificationRule{{ID: "m1"}})
	s.SetFacts(&domain.PermissionFacts{AccountID: "acct-1"})

	s.InvalidateAllRules()

	_, ok := s.Rules(domain.DBTypeMySQL)
	assert.False(t, ok)
	_, ok = s.Facts("acct-1")
	assert.True(t, ok)
}

func TestStore_FactsRoundTripAndInvalidate(t *testing.T) {
	s := New()
	s.SetFacts(&domain.PermissionFacts{AccountID: "acct-1", CollectedAt: 42})
	s.SetFacts(&domain.PermissionFacts{AccountID: "acct-2"})

	f, ok := s.Facts("acct-1")
	require.True(t, ok)
	assert.EqualValues(t, 42, f.CollectedAt)

	s.InvalidateFacts("acct-1")
	_, ok = s.Facts("acct-1")
	assert.False(t, ok)
	_, ok = s.Facts("acct-2")
	assert.True(t, ok)
}

func TestStore_SetFactsIgnoresNilAndAnonymous(t *testing.T) {
	s := New()
	s.SetFacts(nil)
	s.SetFacts(&domain.PermissionFacts{})

	_, ok := s.Facts("")
	assert.False(t, ok)
}

func TestStore_Flush(t *testing.T) {
	s := New()
	s.SetRules(domain.DBTypeMySQL, []domain.ClassificationRule{{ID: "m1"}})
	s.SetFacts(&domain.PermissionFacts{AccountID: "acct-1"})

	s.Flush()

	_, ok := s.Rules(domain.DBTypeMySQL)
	assert.False(t, ok)
	_, ok = s.Facts("acct-1")
	assert.False(t, ok)
}

func TestStore_ConcurrentReadersAndInvalidation(t *testing.T) {
	s := New()
	s.SetRules(domain.DBTypeMySQL, []domain.ClassificationRule{{ID: "m1"}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				accountID := fmt.Sprintf("acct-%d-%d", n, j)
				s.SetFacts(&domain.PermissionFacts{AccountID: accountID})
				s.Facts(accountID)
				s.Rules(domain.DBTypeMySQL)
				if j%100 == 0 {
					s.InvalidateRules(domain.DBTypeMySQL)
					s.SetRules(domain.DBTypeMySQL, []domain.ClassificationRule{{ID: "m1"}})
				}
			}
		}(i)
	}
	wg.Wait()
}
