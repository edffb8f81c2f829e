package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"dbfleet/internal/app"
)

func newStatsCmd() *cobra.Command {
	var (
		dbType string
		from   string
		to     string
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show daily per-rule match counts",
		RunE: func(_ *cobra.Command, _ []string) error {
			if to == "" {
				to = time.Now().UTC().Format("2006-01-02")
			}
			if from == "" {
				from = to
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				stats, err := a.Repos.Stats.ListByDateRange(ctx, dbType, from, to)
				if err != nil {
					return err
				}
				return printJSON(stats)
			})
		},
	}
	cmd.Flags().StringVar(&dbType, "db-type", "", "engine type")
	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD, default today)")
	_ = cmd.MarkFlagRequired("db-type")
	return cmd
}
