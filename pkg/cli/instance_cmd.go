package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"dbfleet/internal/app"
	"dbfleet/internal/domain"
)

func newInstanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instance",
		Short: "Manage fleet instances",
	}
	cmd.AddCommand(newInstanceAddCmd(), newInstanceListCmd())
	return cmd
}

func newInstanceAddCmd() *cobra.Command {
	var (
		name   string
		dbType string
		host   string
		port   int
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a database instance",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				inst, err := a.Repos.Instances.Create(ctx, &domain.Instance{
					Name: name, DBType: dbType, Host: host, Port: port,
				})
				if err != nil {
					return err
				}
				fmt.Printf("instance %s registered (%s)\n", inst.Name, inst.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "unique instance name")
	cmd.Flags().StringVar(&dbType, "db-type", "", "engine type: mysql, postgresql, sqlserver, oracle")
	cmd.Flags().StringVar(&host, "host", "", "instance host")
	cmd.Flags().IntVar(&port, "port", 0, "instance port")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("db-type")
	return cmd
}

func newInstanceListCmd() *cobra.Command {
	var dbType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered instances of one engine type",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				instances, err := a.Repos.Instances.ListByDBType(ctx, dbType)
				if err != nil {
					return err
				}
				return printJSON(instances)
			})
		},
	}
	cmd.Flags().StringVar(&dbType, "db-type", "", "engine type")
	_ = cmd.MarkFlagRequired("db-type")
	return cmd
}
