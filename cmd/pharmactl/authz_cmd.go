package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/modules/core/permissions"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/authz"
	"github.com/Ammat-Bamhdi/thuraya-pharmacy-saas-sub002/pkg/configuration"
)

func newAuthzCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authz",
		Short: "Inspect the role policy",
	}
	cmd.AddCommand(newAuthzVerifyCmd())
	return cmd
}

func newAuthzVerifyCmd() *cobra.Command {
	var fixtures, policyPath string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the role policy against a YAML list of expected decisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fixtures == "" {
				return withCode(exitUsage, fmt.Errorf("--fixtures is required"))
			}
			cases, err := authz.LoadFixtures(fixtures)
			if err != nil {
				return withCode(exitValidation, err)
			}
			if policyPath == "" {
				policyPath = configuration.Use().Authz.PolicyPath
			}
			cfg := authz.Config{Policy: permissions.Policy, PolicyPath: policyPath}
			svc, err := authz.NewService(cfg)
			if err != nil {
				return withCode(exitValidation, err)
			}
			mismatches, err := svc.Verify(cases)
			if err != nil {
				return err
			}
			if len(mismatches) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d cases passed\n", len(cases))
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(mismatches); err != nil {
				return err
			}
			return withCode(exitValidation, fmt.Errorf("%d of %d cases differ", len(mismatches), len(cases)))
		},
	}
	cmd.Flags().StringVar(&fixtures, "fixtures", "", "expected decisions (YAML)")
	cmd.Flags().StringVar(&policyPath, "policy", "", "casbin policy file; defaults to AUTHZ_POLICY_PATH or the built-in policy")
	return cmd
}
