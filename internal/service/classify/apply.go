package classify

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dbfleet/internal/domain"
)

// RulesFile is the declarative rules document. Applying it converges the
// rule store toward the document: new names are created, changed rules get
// a new version, unchanged rules are left alone.
type RulesFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// RuleSpec is one rule in a rules file.
type RuleSpec struct {
	Name             string   `yaml:"name"`
	DBType           string   `yaml:"db_type"`
	Classification   string   `yaml:"classification"` // classification code
	Priority         int      `yaml:"priority"`
	Operator         string   `yaml:"operator"`
	GlobalPrivileges []string `yaml:"global_privileges"`
	DatabasePrivs    []string `yaml:"database_privileges"`
	LegacyCapability string   `yaml:"legacy_capability"`
	Active           *bool    `yaml:"active"` // nil means active
}

// ApplyResult summarizes one rules file application.
type ApplyResult struct {
	Created   []string
	Updated   []string
	Unchanged []string
}

// ApplyRulesFile reads a YAML rules document and converges the rule store
// toward it. The application is idempotent: applying the same file twice
// creates no new versions the second time.
func (s *Service) ApplyRulesFile(ctx context.Context, path string) (*ApplyResult, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from CLI flag, not user input
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var file RulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return s.applyRules(ctx, file.Rules)
}

func (s *Service) applyRules(ctx context.Context, specs []RuleSpec) (*ApplyResult, error) {
	result := &ApplyResult{}
	for i := range specs {
		spec := &specs[i]
		if spec.Name == "" {
			return nil, domain.ErrValidation("rules[%d]: name is required", i)
		}
		if !domain.ValidDBType(spec.DBType) {
			return nil, domain.ErrValidation("rule %q: unknown db_type %q", spec.Name, spec.DBType)
		}

		desired := spec.toRule()
		current, err := s.rules.GetCurrentByName(ctx, spec.DBType, spec.Name)
		switch {
		case err == nil:
			if sameRule(current, desired, s.classificationIDFor(ctx, spec.Classification)) {
				result.Unchanged = append(result.Unchanged, spec.Name)
				continue
			}
			if _, err := s.NewRuleVersion(ctx, current.GroupID, desired); err != nil {
				return nil, fmt.Errorf("rule %q: %w", spec.Name, err)
			}
			result.Updated = append(result.Updated, spec.Name)
		case isNotFound(err):
			if _, err := s.CreateRule(ctx, desired); err != nil {
				return nil, fmt.Errorf("rule %q: %w", spec.Name, err)
			}
			result.Created = append(result.Created, spec.Name)
		default:
			return nil, fmt.Errorf("rule %q: %w", spec.Name, err)
		}
	}
	return result, nil
}

func (r *RuleSpec) toRule() *domain.ClassificationRule {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &domain.ClassificationRule{
		Name:             r.Name,
		DBType:           r.DBType,
		ClassificationID: r.Classification,
		Priority:         r.Priority,
		Expression: domain.RuleExpression{
			Operator:           r.Operator,
			GlobalPrivileges:   r.GlobalPrivileges,
			DatabasePrivileges: r.DatabasePrivs,
		},
		LegacyCapability: r.LegacyCapability,
		IsActive:         active,
	}
}

// sameRule reports whether the stored current version already expresses
// the desired rule, making a new version pointless.
func sameRule(current, desired *domain.ClassificationRule, desiredClassID string) bool {
	if current.ExpressionErr != "" {
		return false
	}
	return current.ClassificationID == desiredClassID &&
		current.Priority == desired.Priority &&
		current.LegacyCapability == desired.LegacyCapability &&
		current.IsActive == desired.IsActive &&
		current.Expression.EffectiveOperator() == desired.Expression.EffectiveOperator() &&
		sameList(current.Expression.GlobalPrivileges, desired.Expression.GlobalPrivileges) &&
		sameList(current.Expression.DatabasePrivileges, desired.Expression.DatabasePrivileges)
}

func sameList(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// classificationIDFor resolves a code to an ID, returning the code itself
// when resolution fails; comparison against a stored ID then simply fails
// and the write path reports the real error.
func (s *Service) classificationIDFor(ctx context.Context, code string) string {
	c, err := s.classes.GetByCode(ctx, code)
	if err != nil {
		return code
	}
	return c.ID
}

func isNotFound(err error) bool {
	var notFound *domain.NotFoundError
	return errors.As(err, &notFound)
}
