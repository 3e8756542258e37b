package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vitebski/claims-ops/internal/gxcontext"
	"github.com/vitebski/claims-ops/internal/notify"
	"github.com/vitebski/claims-ops/internal/pipeline"
)

func (a *app) pipelineRunner() *pipeline.Runner {
	self, err := os.Executable()
	if err != nil {
		a.logger.Warnf("Could not resolve executable path, using %s from PATH: %v", pipeline.SelfCommand, err)
		self = pipeline.SelfCommand
	}
	r := pipeline.NewRunner(a.cfg.ProjectDir, self, a.out, a.logger)
	r.Fs = a.filesystem()
	return r
}

func (a *app) workspaceReady() bool {
	return gxcontext.Exists(a.filesystem(), a.cfg.ProjectDir)
}

func (a *app) pipelineCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run the dbt build with tests, validation and docs",
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the layered pipeline and notify the webhook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := a.pipelineRunner()
			if a.cfg.SlackWebhookURL != "" {
				r.Notifier = notify.NewNotifier(a.cfg.SlackWebhookURL, a.logger)
			}
			_, err := r.RunEnhanced(cmd.Context(), a.workspaceReady)
			return err
		},
	}

	quality := &cobra.Command{
		Use:   "quality",
		Short: "Run dbt, tests, every checkpoint and docs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.pipelineRunner().RunQuality(cmd.Context(), a.workspaceReady)
			return err
		},
	}

	graph := &cobra.Command{
		Use:   "graph",
		Short: "Print the step dependency graph of the layered pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipeline.PrintPlan(a.out, pipeline.EnhancedSteps(a.workspaceReady))
		},
	}

	cmd.AddCommand(run, quality, graph)
	return cmd
}
