package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vitebski/claims-ops/internal/config"
	"github.com/vitebski/claims-ops/internal/validation"
)

func (a *app) suiteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suite",
		Short: "Manage expectation suites",
	}

	var force bool
	createMarts := &cobra.Command{
		Use:   "create-marts",
		Short: "Create the fct_inpatient_charges suite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := a.suiteManager(force)
			if err != nil {
				return err
			}
			defer cleanup()
			_, err = m.CreateMartsSuite(cmd.Context())
			return err
		},
	}
	createMarts.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing suite without asking")

	createAll := &cobra.Command{
		Use:   "create-all",
		Short: "Create row-count suites for the remaining marts tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := a.suiteManager(false)
			if err != nil {
				return err
			}
			defer cleanup()
			_, err = m.CreateAllSuites(cmd.Context())
			return err
		},
	}

	profile := &cobra.Command{
		Use:   "profile",
		Short: "Add statistical profiling expectations to the marts suite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := a.suiteManager(false)
			if err != nil {
				return err
			}
			defer cleanup()
			_, _, err = m.AddProfilingExpectations()
			return err
		},
	}

	show := &cobra.Command{
		Use:   "show [suite]",
		Short: "List the expectations of a suite",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := a.suiteManager(false)
			if err != nil {
				return err
			}
			defer cleanup()
			name := config.MartsSuiteName(config.MartsTable)
			if len(args) == 1 {
				name = args[0]
			}
			return m.ShowSuite(name)
		},
	}

	del := &cobra.Command{
		Use:   "delete [suite]",
		Short: "Delete a suite",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := a.suiteManager(false)
			if err != nil {
				return err
			}
			defer cleanup()
			name := config.MartsSuiteName(config.MartsTable)
			if len(args) == 1 {
				name = args[0]
			}
			return m.DeleteSuite(name)
		},
	}

	cmd.AddCommand(createMarts, createAll, profile, show, del)
	return cmd
}

func (a *app) checkpointCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Create and run validation checkpoints",
	}

	var force bool
	create := &cobra.Command{
		Use:   "create",
		Short: "Create the marts checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := a.suiteManager(force)
			if err != nil {
				return err
			}
			defer cleanup()
			_, err = m.CreateCheckpoint()
			return err
		},
	}
	create.Flags().BoolVarP(&force, "force", "f", false, "Replace an existing checkpoint without asking")

	var strict bool
	run := &cobra.Command{
		Use:   "run [checkpoint]",
		Short: "Validate a checkpoint's suite against the warehouse",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, cleanup, err := a.validationRunner()
			if err != nil {
				return err
			}
			defer cleanup()

			name := config.CheckpointName
			if len(args) == 1 {
				name = args[0]
			}
			result, err := runner.Run(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("failed to run checkpoint: %w", err)
			}
			validation.PrintValidationReport(a.out, result)
			if strict && !result.Success {
				return fmt.Errorf("%d expectations failed", result.Statistics.UnsuccessfulExpectations)
			}
			return nil
		},
	}
	run.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any expectation fails")

	cmd.AddCommand(create, run)
	return cmd
}
