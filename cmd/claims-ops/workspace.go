package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vitebski/claims-ops/internal/ensure"
	"github.com/vitebski/claims-ops/internal/gxcontext"
	"github.com/vitebski/claims-ops/internal/profiles"
	"github.com/vitebski/claims-ops/internal/suites"
	"github.com/vitebski/claims-ops/internal/utils"
)

func (a *app) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the validation workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, created, err := gxcontext.Init(a.filesystem(), a.cfg.ProjectDir)
			if err != nil {
				return fmt.Errorf("initialize workspace: %w", err)
			}
			if !created {
				fmt.Fprintf(a.out, "Validation workspace already initialized at: %s\n", ws.Root)
				return nil
			}
			fmt.Fprintf(a.out, "Success! Created at: %s\n", ws.Root)
			utils.PrintNextSteps(a.out, "Configure the warehouse: claims-ops datasource configure")
			return nil
		},
	}
}

func (a *app) datasourceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasource",
		Short: "Manage the warehouse datasource",
	}

	var force bool
	configure := &cobra.Command{
		Use:   "configure",
		Short: "Create the Snowflake datasource from the dbt profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.workspace()
			if err != nil {
				return err
			}

			profile, err := a.profile()
			if err != nil {
				if !errors.Is(err, profiles.ErrProfileNotFound) {
					return err
				}
				a.logger.Warnf("Could not read dbt profile: %v", err)
				fmt.Fprintln(a.out, "Using defaults; SNOWFLAKE_* environment variables override them.")
			}

			var prompter ensure.Prompter
			if ensure.IsInteractive() {
				prompter = ensure.SurveyPrompter{}
			}

			m := suites.NewManager(ws, ensure.ForTerminal(force), a.out, a.logger)
			_, err = m.ConfigureDatasource(profile, prompter)
			if errors.Is(err, suites.ErrMissingCredentials) {
				fmt.Fprintln(a.out, "ERROR: Account, username, and password are required!")
			}
			return err
		},
	}
	configure.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing datasource without asking")

	cmd.AddCommand(configure)
	return cmd
}
