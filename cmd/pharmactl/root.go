package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/internal/server"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/application"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/configuration"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pharmactl",
		Short:         "Pharmacy platform administration tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newProvisionCmd())
	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newAuthzCmd())
	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	configuration.Use().Unload()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitCode(err))
	}
}

// withApp builds the application, runs fn and closes the database.
func withApp(ctx context.Context, fn func(app application.Application) error) error {
	app, err := server.NewApplication(ctx, configuration.Use())
	if err != nil {
		return withCode(exitDB, err)
	}
	defer app.DB().Close()
	return fn(app)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return server.Run(cmd.Context(), configuration.Use())
		},
	}
}
