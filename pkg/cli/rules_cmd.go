package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"dbfleet/internal/app"
	"dbfleet/internal/domain"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
	}
	cmd.AddCommand(
		newRulesCreateCmd(),
		newRulesNewVersionCmd(),
		newRulesApplyCmd(),
		newRulesListCmd(),
		newRulesVersionsCmd(),
		newRulesActivateCmd(true),
		newRulesActivateCmd(false),
	)
	return cmd
}

// ruleFlags collects the fields shared by create and new-version.
type ruleFlags struct {
	name             string
	dbType           string
	classification   string
	priority         int
	operator         string
	globalPrivs      []string
	databasePrivs    []string
	legacyCapability string
}

func (f *ruleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "rule name, unique per engine type")
	cmd.Flags().StringVar(&f.dbType, "db-type", "", "engine type")
	cmd.Flags().StringVar(&f.classification, "classification", "", "classification code")
	cmd.Flags().IntVar(&f.priority, "priority", 100, "evaluation priority, lower first")
	cmd.Flags().StringVar(&f.operator, "operator", "", "clause operator: AND or OR (default OR)")
	cmd.Flags().StringSliceVar(&f.globalPrivs, "global-priv", nil, "required global privilege (repeatable)")
	cmd.Flags().StringSliceVar(&f.databasePrivs, "database-priv", nil, "required per-database privilege (repeatable)")
	cmd.Flags().StringVar(&f.legacyCapability, "legacy-capability", "", "capability token for the legacy matcher")
}

func (f *ruleFlags) toRule() *domain.ClassificationRule {
	return &domain.ClassificationRule{
		Name:             f.name,
		DBType:           f.dbType,
		ClassificationID: f.classification,
		Priority:         f.priority,
		Expression: domain.RuleExpression{
			Operator:           f.operator,
			GlobalPrivileges:   f.globalPrivs,
			DatabasePrivileges: f.databasePrivs,
		},
		LegacyCapability: f.legacyCapability,
		IsActive:         true,
	}
}

func newRulesCreateCmd() *cobra.Command {
	var flags ruleFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create version 1 of a new rule",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				rule, err := a.Classify.CreateRule(ctx, flags.toRule())
				if err != nil {
					return err
				}
				fmt.Printf("rule %s created (group %s, version %d)\n", rule.Name, rule.GroupID, rule.Version)
				return nil
			})
		},
	}
	flags.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("db-type")
	_ = cmd.MarkFlagRequired("classification")
	return cmd
}

func newRulesNewVersionCmd() *cobra.Command {
	var flags ruleFlags
	cmd := &cobra.Command{
		Use:   "new-version <group-id>",
		Short: "Supersede a rule's current version with a new one",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				rule, err := a.Classify.NewRuleVersion(ctx, args[0], flags.toRule())
				if err != nil {
					return err
				}
				fmt.Printf("rule %s now at version %d\n", rule.Name, rule.Version)
				return nil
			})
		},
	}
	flags.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("db-type")
	_ = cmd.MarkFlagRequired("classification")
	return cmd
}

func newRulesApplyCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a declarative YAML rules file",
		Long: "Converges the rule store toward the document: new names are created, " +
			"changed rules get a new immutable version, unchanged rules are left alone.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				result, err := a.Classify.ApplyRulesFile(ctx, file)
				if err != nil {
					return err
				}
				fmt.Printf("created=%d updated=%d unchanged=%d\n",
					len(result.Created), len(result.Updated), len(result.Unchanged))
				for _, name := range result.Created {
					fmt.Printf("  created   %s\n", name)
				}
				for _, name := range result.Updated {
					fmt.Printf("  updated   %s\n", name)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML rules file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newRulesListCmd() *cobra.Command {
	var dbType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active rules for one engine type in evaluation order",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				rules, err := a.Classify.ListActiveRules(ctx, dbType)
				if err != nil {
					return err
				}
				return printJSON(rules)
			})
		},
	}
	cmd.Flags().StringVar(&dbType, "db-type", "", "engine type")
	_ = cmd.MarkFlagRequired("db-type")
	return cmd
}

func newRulesVersionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions <group-id>",
		Short: "Show the full version history of one rule group",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				versions, err := a.Classify.ListRuleVersions(ctx, args[0])
				if err != nil {
					return err
				}
				if len(versions) == 0 {
					return domain.ErrNotFound("rule group %s not found", args[0])
				}
				return printJSON(versions)
			})
		},
	}
	return cmd
}

func newRulesActivateCmd(active bool) *cobra.Command {
	use, short := "activate <group-id>", "Activate a rule group"
	if !active {
		use, short = "deactivate <group-id>", "Deactivate a rule group without deleting its history"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := a.Classify.SetRuleActive(ctx, args[0], active); err != nil {
					return err
				}
				fmt.Printf("rule group %s active=%v\n", args[0], active)
				return nil
			})
		},
	}
}
