package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"dbfleet/internal/app"
)

func newClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Run and inspect classification passes",
	}
	cmd.AddCommand(newClassifyRunCmd(), newClassifyExplainCmd())
	return cmd
}

func newClassifyRunCmd() *cobra.Command {
	var dbType string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a classification pass for one engine type",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				run, err := a.Classify.RunPass(ctx, dbType)
				if err != nil {
					return err
				}
				fmt.Printf("pass %s: %s (created=%d updated=%d unchanged=%d skipped=%d)\n",
					run.ID, run.Status, run.Created, run.Updated, run.Unchanged, run.Skipped)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dbType, "db-type", "", "engine type")
	_ = cmd.MarkFlagRequired("db-type")
	return cmd
}

func newClassifyExplainCmd() *cobra.Command {
	var (
		accountID string
		ruleID    string
	)
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Replay one rule version against one account",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				exp, err := a.Classify.Explain(ctx, accountID, ruleID)
				if err != nil {
					return err
				}
				return printJSON(exp)
			})
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "account ID")
	cmd.Flags().StringVar(&ruleID, "rule", "", "rule version ID (may be superseded)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("rule")
	return cmd
}

func newRunsCmd() *cobra.Command {
	var (
		dbType string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent classification passes",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				runs, err := a.Repos.Runs.ListRecent(ctx, dbType, limit)
				if err != nil {
					return err
				}
				return printJSON(runs)
			})
		},
	}
	cmd.Flags().StringVar(&dbType, "db-type", "", "engine type")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to show")
	_ = cmd.MarkFlagRequired("db-type")
	return cmd
}
