package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vitebski/claims-ops/internal/config"
	"github.com/vitebski/claims-ops/internal/utils"
)

func main() {
	os.Exit(run(&app{out: os.Stdout}, os.Args[1:], os.Stderr))
}

// run executes the command line and returns the process exit code
func run(a *app, args []string, stderr io.Writer) int {
	rootCmd := newRootCommand(a)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand(a *app) *cobra.Command {
	var (
		envFile      string
		logLevel     string
		projectDir   string
		profilesPath string
		profile      string
		target       string
	)

	rootCmd := &cobra.Command{
		Use:   "claims-ops",
		Short: "Operational tooling for the healthcare claims analytics pipeline",
		Long: `Claims Ops

Runs the daily healthcare claims pipeline: uploads CMS extracts to the data
lake, builds the dbt models, validates the marts with expectation suites,
scores data quality and publishes documentation and notifications.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Setup logging
			a.logger = utils.SetupLogging(logLevel)

			// Load environment variables
			utils.LoadEnvironmentVariables(envFile, a.logger)

			_, v := config.Load()
			for key, flag := range map[string]string{
				"CLAIMS_PROJECT_DIR": "project-dir",
				"DBT_PROFILES_PATH":  "profiles",
				"DBT_PROFILE":        "profile",
				"DBT_TARGET":         "target",
			} {
				if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
					if err := v.BindPFlag(key, f); err != nil {
						return err
					}
				}
			}
			a.cfg = config.FromViper(v)
			a.logger.Debugf("Project directory: %s", a.cfg.ProjectDir)
			return nil
		},
	}

	// Define flags
	rootCmd.PersistentFlags().StringVarP(&envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project-dir", "C", "", "Project directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&profilesPath, "profiles", "", "Path to dbt profiles.yml (default: ~/.dbt/profiles.yml)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "dbt profile name (default: healthcare_analytics)")
	rootCmd.PersistentFlags().StringVar(&target, "target", "", "dbt target (default: dev)")

	rootCmd.AddCommand(
		a.initCommand(),
		a.datasourceCommand(),
		a.suiteCommand(),
		a.checkpointCommand(),
		a.scorecardCommand(),
		a.docsCommand(),
		a.pipelineCommand(),
		a.uploadCommand(),
		a.notifyCommand(),
		a.investigateCommand(),
		a.seedCommand(),
	)

	return rootCmd
}
