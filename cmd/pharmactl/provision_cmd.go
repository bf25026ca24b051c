package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/presentation/mappers"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/seed"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/services"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/application"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/serrors"
)

func newProvisionCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Register an organization with its branches and staff from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return withCode(exitUsage, fmt.Errorf("--file is required"))
			}
			dto, err := seed.LoadProvisionFile(file)
			if err != nil {
				return withCode(exitValidation, err)
			}
			return withApp(cmd.Context(), func(app application.Application) error {
				result, err := seed.Provision(cmd.Context(), app, dto)
				if err != nil {
					if serrors.IsKind(err, serrors.KindValidation) || serrors.IsKind(err, serrors.KindConflict) {
						return withCode(exitValidation, err)
					}
					return err
				}
				return printResult(cmd, result)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "organization description (YAML)")
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo organization if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(app application.Application) error {
				if err := app.Migrations().Run(cmd.Context()); err != nil {
					return withCode(exitDB, err)
				}
				result, err := seed.SeedDemo(cmd.Context(), app)
				if err != nil || result == nil {
					return err
				}
				return printResult(cmd, result)
			})
		},
	}
}

// printResult writes the per item outcome as JSON and fails with
// exitPartial when any item was rejected.
func printResult(cmd *cobra.Command, result *services.ProvisioningResult) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(mappers.ProvisioningToViewModel(result)); err != nil {
		return err
	}
	if failed := len(result.Failed()); failed > 0 {
		return withCode(exitPartial, fmt.Errorf("%d of %d items failed", failed, len(result.Results)))
	}
	return nil
}
