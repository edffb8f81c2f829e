package classify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbfleet/internal/domain"
)

const rulesYAML = `
rules:
  - name: grant-holders
    db_type: mysql
    classification: super
    priority: 10
    operator: OR
    global_privileges: ["GRANT OPTION", "SUPER"]
  - name: writers
    db_type: mysql
    classification: write
    priority: 200
    operator: AND
    global_privileges: ["INSERT", "UPDATE"]
    legacy_capability: can_grant
`

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestApplyRulesFile_CreateThenIdempotent(t *testing.T) {
	h := newHarness(t, Options{DSLV4: true})
	ctx := context.Background()
	h.seedClassification(t, domain.ClassSuper, 1)
	h.seedClassification(t, domain.ClassWrite, 4)

	path := writeRulesFile(t, rulesYAML)

	result, err := h.svc.ApplyRulesFile(ctx, path)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"grant-holders", "writers"}, result.Created)
	assert.Empty(t, result.Updated)

	// Applying the same document again creates no new versions.
	result, err = h.svc.ApplyRulesFile(ctx, path)
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Empty(t, result.Updated)
	assert.ElementsMatch(t, []string{"grant-holders", "writers"}, result.Unchanged)

	current, err := h.rules.GetCurrentByName(ctx, domain.DBTypeMySQL, "grant-holders")
	require.NoError(t, err)
	assert.Equal(t, 1, current.Version)
}

func TestApplyRulesFile_ChangedRuleGetsNewVersion(t *testing.T) {
	h := newHarness(t, Options{DSLV4: true})
	ctx := context.Background()
	h.seedClassification(t, domain.ClassSuper, 1)
	h.seedClassification(t, domain.ClassWrite, 4)

	_, err := h.svc.ApplyRulesFile(ctx, writeRulesFile(t, rulesYAML))
	require.NoError(t, err)

	amended := `
rules:
  - name: grant-holders
    db_type: mysql
    classification: super
    priority: 10
    operator: AND
    global_privileges: ["GRANT OPTION", "SUPER"]
`
	result, err := h.svc.ApplyRulesFile(ctx, writeRulesFile(t, amended))
	require.NoError(t, err)
	assert.Equal(t, []string{"grant-holders"}, result.Updated)

	current, err := h.rules.GetCurrentByName(ctx, domain.DBTypeMySQL, "grant-holders")
	require.NoError(t, err)
	assert.Equal(t, 2, current.Version)
	assert.Equal(t, domain.OperatorAnd, current.Expression.Operator)

	versions, err := h.rules.ListVersions(ctx, current.GroupID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.NotNil(t, versions[0].SupersededAt)
}

func TestApplyRulesFile_RejectsUnknownDBType(t *testing.T) {
	h := newHarness(t, Options{DSLV4: true})
	path := writeRulesFile(t, `
rules:
  - name: x
    db_type: mongodb
    classification: super
`)
	_, err := h.svc.ApplyRulesFile(context.Background(), path)
	var valErr *domain.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestExplain_ReplaysSupersededVersion(t *testing.T) {
	h := newHarness(t, Options{DSLV4: true})
	ctx := context.Background()
	h.seedClassification(t, domain.ClassSuper, 1)

	acct := h.seedAccount(t, domain.DBTypeMySQL, "prod-01", "root")
	h.seedSnapshot(t, acct.ID, "GRANT OPTION")

	v1, err := h.svc.CreateRule(ctx, &domain.ClassificationRule{
		Name: "supers", DBType: domain.DBTypeMySQL, ClassificationID: domain.ClassSuper,
		Expression: domain.RuleExpression{GlobalPrivileges: []string{"GRANT OPTION"}},
		IsActive:   true,
	})
	require.NoError(t, err)

	v2, err := h.svc.NewRuleVersion(ctx, v1.GroupID, &domain.ClassificationRule{
		Name: "supers", DBType: domain.DBTypeMySQL, ClassificationID: domain.ClassSuper,
		Expression: domain.RuleExpression{GlobalPrivileges: []string{"SUPER"}},
		IsActive:   true,
	})
	require.NoError(t, err)

	// The superseded version still matches; the current one does not.
	exp, err := h.svc.Explain(ctx, acct.ID, v1.ID)
	require.NoError(t, err)
	assert.True(t, exp.Result.Matched)
	assert.Equal(t, 1, exp.Version)
	assert.Contains(t, exp.GlobalPrivileges, "GRANT OPTION")

	exp, err = h.svc.Explain(ctx, acct.ID, v2.ID)
	require.NoError(t, err)
	assert.False(t, exp.Result.Matched)
	require.NotEmpty(t, exp.Result.Clauses)
	assert.Equal(t, []string{"SUPER"}, exp.Result.Clauses[0].Missing)
}

func TestSetRuleActive_InvalidatesAndAudits(t *testing.T) {
	h := newHarness(t, Options{DSLV4: true})
	ctx := context.Background()
	h.seedClassification(t, domain.ClassSuper, 1)

	rule, err := h.svc.CreateRule(ctx, &domain.ClassificationRule{
		Name: "supers", DBType: domain.DBTypeMySQL, ClassificationID: domain.ClassSuper,
		IsActive: true,
	})
	require.NoError(t, err)

	// Warm the cache, then deactivate; the next read must miss.
	_, err = h.svc.ListActiveRules(ctx, domain.DBTypeMySQL)
	require.NoError(t, err)
	h.cache.SetRules(domain.DBTypeMySQL, []domain.ClassificationRule{*rule})

	require.NoError(t, h.svc.SetRuleActive(ctx, rule.GroupID, false))
	_, ok := h.cache.Rules(domain.DBTypeMySQL)
	assert.False(t, ok)

	active, err := h.rules.ListActive(ctx, domain.DBTypeMySQL)
	require.NoError(t, err)
	assert.Empty(t, active)
}
