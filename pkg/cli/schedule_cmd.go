package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dbfleet/internal/app"
	"dbfleet/internal/config"
)

func newScheduleCmd() *cobra.Command {
	var schedule string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run classification passes on a cron schedule",
		Long: "Starts a long-running process that classifies every engine type on the " +
			"given cron schedule. Rule and facts caches stay warm across passes.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(_ context.Context, a *app.App) error {
				if schedule == "" {
					cfg, err := config.LoadFromEnv()
					if err != nil {
						return err
					}
					schedule = cfg.ClassifySchedule
				}
				if schedule == "" {
					return fmt.Errorf("no schedule given: set --cron or CLASSIFY_SCHEDULE")
				}

				if err := a.Scheduler.Start(schedule); err != nil {
					return fmt.Errorf("start scheduler: %w", err)
				}
				defer a.Scheduler.Stop()

				sig := make(chan os.Signal, 1)
				signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
				<-sig
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&schedule, "cron", "", "cron expression (default CLASSIFY_SCHEDULE)")
	return cmd
}
