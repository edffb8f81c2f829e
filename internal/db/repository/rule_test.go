package repository

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "dbfleet/internal/db"
	"dbfleet/internal/domain"
)

func setupRuleRepo(t *testing.T) (*RuleRepo, *ClassificationRepo) {
	t.Helper()
	db, _ := internaldb.OpenTestSQLite(t)
	return NewRuleRepo(db), NewClassificationRepo(db)
}

func seedClassification(t *testing.T, repo *ClassificationRepo, code string, risk int) *domain.AccountClassification {
	t.Helper()
	c, err := repo.Upsert(context.Background(), &domain.AccountClassification{
		Code: code, DisplayName: code, RiskLevel: risk, IsSystem: true,
	})
	require.NoError(t, err)
	return c
}

func TestRuleRepo_CreateStartsAtVersion1(t *testing.T) {
	rules, classes := setupRuleRepo(t)
	ctx := context.Background()
	c := seedClassification(t, classes, "super", 1)

	rule, err := rules.Create(ctx, &domain.ClassificationRule{
		Name:             "grant-holders",
		DBType:           domain.DBTypeMySQL,
		ClassificationID: c.ID,
		Expression:       domain.RuleExpression{Operator: domain.OperatorOr, GlobalPrivileges: []string{"GRANT OPTION"}},
		IsActive:         true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, rule.Version)
	assert.NotEmpty(t, rule.GroupID)
	assert.Nil(t, rule.SupersededAt)
	assert.True(t, rule.Current())
}

func TestRuleRepo_NewVersionSupersedesPrior(t *testing.T) {
	rules, classes := setupRuleRepo(t)
	ctx := context.Background()
	c := seedClassification(t, classes, "super", 1)

	v1, err := rules.Create(ctx, &domain.ClassificationRule{
		Name:             "grant-holders",
		DBType:           domain.DBTypeMySQL,
		ClassificationID: c.ID,
		Expression:       domain.RuleExpression{GlobalPrivileges: []string{"GRANT OPTION"}},
		IsActive:         true,
	})
	require.NoError(t, err)

	v2, err := rules.NewVersion(ctx, v1.GroupID, &domain.ClassificationRule{
		Name:             "grant-holders",
		DBType:           domain.DBTypeMySQL,
		ClassificationID: c.ID,
		Expression:       domain.RuleExpression{GlobalPrivileges: []string{"GRANT OPTION", "SUPER"}},
		IsActive:         true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, v2.Version)
	assert.Equal(t, v1.GroupID, v2.GroupID)
	assert.NotEqual(t, v1.ID, v2.ID, "a new version is a new row")

	// Prior version row is intact but superseded.
	v1Reloaded, err := rules.GetByID(ctx, v1.ID)
	require.NoError(t, err)
	assert.NotNil(t, v1Reloaded.SupersededAt)
	assert.Equal(t, []string{"GRANT OPTION"}, v1Reloaded.Expression.GlobalPrivileges,
		"superseded expression must never change")

	current, err := rules.GetCurrent(ctx, v1.GroupID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, current.ID)
}

func TestRuleRepo_NewVersionUnknownGroup(t *testing.T) {
	rules, classes := setupRuleRepo(t)
	c := seedClassification(t, classes, "super", 1)

	_, err := rules.NewVersion(context.Background(), "no-such-group", &domain.ClassificationRule{
		Name: "x", DBType: domain.DBTypeMySQL, ClassificationID: c.ID,
	})
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestRuleRepo_ListActiveExcludesSupersededAndInactive(t *testing.T) {
	rules, classes := setupRuleRepo(t)
	ctx := context.Background()
	c := seedClassification(t, classes, "super", 1)

	v1, err := rules.Create(ctx, &domain.ClassificationRule{
		Name: "a", DBType: domain.DBTypeMySQL, ClassificationID: c.ID, IsActive: true,
	})
	require.NoError(t, err)
	_, err = rules.NewVersion(ctx, v1.GroupID, &domain.ClassificationRule{
		Name: "a", DBType: domain.DBTypeMySQL, ClassificationID: c.ID, IsActive: true,
	})
	require.NoError(t, err)

	inactive, err := rules.Create(ctx, &domain.ClassificationRule{
		Name: "b", DBType: domain.DBTypeMySQL, ClassificationID: c.ID, IsActive: true,
	})
	require.NoError(t, err)
	require.NoError(t, rules.SetActive(ctx, inactive.GroupID, false))

	_, err = rules.Create(ctx, &domain.ClassificationRule{
		Name: "pg-only", DBType: domain.DBTypePostgreSQL, ClassificationID: c.ID, IsActive: true,
	})
	require.NoError(t, err)

	active, err := rules.ListActive(ctx, domain.DBTypeMySQL)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].Name)
	assert.Equal(t, 2, active[0].Version, "only the current version evaluates")
}

func TestRuleRepo_ListActiveStableOrder(t *testing.T) {
	rules, classes := setupRuleRepo(t)
	ctx := context.Background()
	c := seedClassification(t, classes, "super", 1)

	_, err := rules.Create(ctx, &domain.ClassificationRule{
		Name: "low", DBType: domain.DBTypeMySQL, ClassificationID: c.ID, Priority: 200, IsActive: true,
	})
	require.NoError(t, err)
	_, err = rules.Create(ctx, &domain.ClassificationRule{
		Name: "high", DBType: domain.DBTypeMySQL, ClassificationID: c.ID, Priority: 10, IsActive: true,
	})
	require.NoError(t, err)

	active, err := rules.ListActive(ctx, domain.DBTypeMySQL)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "high", active[0].Name)
	assert.Equal(t, "low", active[1].Name)
}

func TestRuleRepo_ListVersions(t *testing.T) {
	rules, classes := setupRuleRepo(t)
	ctx := context.Background()
	c := seedClassification(t, classes, "super", 1)

	v1, err := rules.Create(ctx, &domain.ClassificationRule{
		Name: "a", DBType: domain.DBTypeOracle, ClassificationID: c.ID, IsActive: true,
	})
	require.NoError(t, err)
	_, err = rules.NewVersion(ctx, v1.GroupID, &domain.ClassificationRule{
		Name: "a", DBType: domain.DBTypeOracle, ClassificationID: c.ID, IsActive: true,
	})
	require.NoError(t, err)

	versions, err := rules.ListVersions(ctx, v1.GroupID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].Version)
	assert.Equal(t, 2, versions[1].Version)
}

func TestRuleRepo_DuplicateCurrentNameRejected(t *testing.T) {
	rules, classes := setupRuleRepo(t)
	ctx := context.Background()
	c := seedClassification(t, classes, "super", 1)

	_, err := rules.Create(ctx, &domain.ClassificationRule{
		Name: "supers", DBType: domain.DBTypeMySQL, ClassificationID: c.ID, IsActive: true,
	})
	require.NoError(t, err)

	// Names are the convergence key for declarative applies; a second
	// current group may not take the same (db_type, name).
	var conflict *domain.ConflictError
	_, err = rules.Create(ctx, &domain.ClassificationRule{
		Name: "supers", DBType: domain.DBTypeMySQL, ClassificationID: c.ID, IsActive: true,
	})
	require.ErrorAs(t, err, &conflict)

	// The same name on another engine type is a different rule.
	_, err = rules.Create(ctx, &domain.ClassificationRule{
		Name: "supers", DBType: domain.DBTypeOracle, ClassificationID: c.ID, IsActive: true,
	})
	require.NoError(t, err)
}

func TestRuleRepo_RenamedGroupFreesItsName(t *testing.T) {
	rules, classes := setupRuleRepo(t)
	ctx := context.Background()
	c := seedClassification(t, classes, "super", 1)

	v1, err := rules.Create(ctx, &domain.ClassificationRule{
		Name: "old-name", DBType: domain.DBTypeMySQL, ClassificationID: c.ID, IsActive: true,
	})
	require.NoError(t, err)
	_, err = rules.NewVersion(ctx, v1.GroupID, &domain.ClassificationRule{
		Name: "new-name", DBType: domain.DBTypeMySQL, ClassificationID: c.ID, IsActive: true,
	})
	require.NoError(t, err)

	// Superseded rows keep their name without blocking a fresh group from
	// taking it.
	_, err = rules.Create(ctx, &domain.ClassificationRule{
		Name: "old-name", DBType: domain.DBTypeMySQL, ClassificationID: c.ID, IsActive: true,
	})
	require.NoError(t, err)
}

func TestRuleRepo_ValidationErrors(t *testing.T) {
	rules, classes := setupRuleRepo(t)
	ctx := context.Background()
	c := seedClassification(t, classes, "super", 1)

	var valErr *domain.ValidationError

	_, err := rules.Create(ctx, &domain.ClassificationRule{
		DBType: domain.DBTypeMySQL, ClassificationID: c.ID,
	})
	require.ErrorAs(t, err, &valErr)

	_, err = rules.Create(ctx, &domain.ClassificationRule{
		Name: "x", DBType: "db2", ClassificationID: c.ID,
	})
	require.ErrorAs(t, err, &valErr)

	_, err = rules.Create(ctx, &domain.ClassificationRule{
		Name: "x", DBType: domain.DBTypeMySQL, ClassificationID: c.ID,
		Expression: domain.RuleExpression{Operator: "XOR"},
	})
	require.ErrorAs(t, err, &valErr)
}

func TestRuleRepo_MalformedStoredExpressionIsFlagged(t *testing.T) {
	db, _ := internaldb.OpenTestSQLite(t)
	rules := NewRuleRepo(db)
	classes := NewClassificationRepo(db)
	ctx := context.Background()
	c := seedClassification(t, classes, "super", 1)

	rule, err := rules.Create(ctx, &domain.ClassificationRule{
		Name: "broken", DBType: domain.DBTypeMySQL, ClassificationID: c.ID, IsActive: true,
	})
	require.NoError(t, err)

	// Corrupt the stored document directly; the API never writes this.
	_, err = db.Exec(`UPDATE classification_rules SET expression_json = '{invalid' WHERE id = ?`, rule.ID)
	require.NoError(t, err)

	loaded, err := rules.GetByID(ctx, rule.ID)
	require.NoError(t, err, "a bad expression must not fail the load")
	assert.NotEmpty(t, loaded.ExpressionErr)
}
