package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/application"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(app application.Application) error {
				return withCode(exitDB, app.Migrations().Run(cmd.Context()))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(app application.Application) error {
				return withCode(exitDB, app.Migrations().Rollback(cmd.Context()))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(app application.Application) error {
				statuses, err := app.Migrations().Status(cmd.Context())
				if err != nil {
					return withCode(exitDB, err)
				}
				out := cmd.OutOrStdout()
				for _, st := range statuses {
					applied := "pending"
					if !st.AppliedAt.IsZero() {
						applied = st.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(out, "%-6d %-10s %s\n", st.Source.Version, st.State, applied)
				}
				return nil
			})
		},
	})
	return cmd
}
