package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitebski/claims-ops/internal/docs"
	"github.com/vitebski/claims-ops/internal/scorecard"
)

func (a *app) scorecardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scorecard",
		Short: "Validate the marts and print a data quality scorecard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, cleanup, err := a.validationRunner()
			if err != nil {
				return err
			}
			defer cleanup()
			_, err = scorecard.Generate(cmd.Context(), runner, runner.Workspace, a.out, a.logger)
			return err
		},
	}
}

func (a *app) docsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Data documentation",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "build",
		Short: "Render the static data docs site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.workspace()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Building data docs...")
			path, err := docs.Build(ws, time.Now())
			if err != nil {
				return fmt.Errorf("build data docs: %w", err)
			}
			fmt.Fprintln(a.out, "Data docs built successfully!")
			fmt.Fprintf(a.out, "Open: %s\n", path)
			return nil
		},
	})
	return cmd
}
