package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dbfleet/internal/app"
)

func newCollectCmd() *cobra.Command {
	var (
		instance string
		username string
		host     string
		file     string
	)
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Ingest a raw adapter payload for one account",
		RunE: func(_ *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file) //nolint:gosec // path is from CLI flag, not user input
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}
			var payload interface{}
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("parse payload %s: %w", file, err)
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				snap, err := a.Collect.Ingest(ctx, instance, username, host, payload)
				if err != nil {
					return err
				}
				fmt.Printf("snapshot stored for %s@%s (account %s, %d warnings)\n",
					username, host, snap.AccountID, len(snap.Errors))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&instance, "instance", "", "instance name")
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&host, "host", "", "account host mask")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON payload file")
	_ = cmd.MarkFlagRequired("instance")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
