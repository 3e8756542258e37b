package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vitebski/claims-ops/internal/generator"
	"github.com/vitebski/claims-ops/internal/investigate"
	"github.com/vitebski/claims-ops/internal/notify"
	"github.com/vitebski/claims-ops/internal/populator"
	"github.com/vitebski/claims-ops/internal/upload"
	"github.com/vitebski/claims-ops/internal/utils"
)

func (a *app) uploadCommand() *cobra.Command {
	var bucket, region string
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload the CMS extracts to the bronze layer of the data lake",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bucket == "" {
				bucket = a.cfg.S3Bucket
			}
			if region == "" {
				region = a.cfg.AWSRegion
			}

			a.logger.Info("S3 Data Lake Upload - Healthcare Analytics Platform")
			u, err := upload.NewUploader(cmd.Context(), bucket, region, a.cfg.ProjectDir, a.logger)
			if err != nil {
				return err
			}
			u.Fs = a.filesystem()

			summary, err := u.Run(cmd.Context(), upload.Files)
			if err != nil {
				return err
			}

			utils.PrintBanner(a.out, "Upload Summary")
			fmt.Fprintf(a.out, "Successfully uploaded: %d/%d files\n", summary.Uploaded, len(summary.Files))
			fmt.Fprintf(a.out, "Manifest: s3://%s/%s\n", bucket, summary.ManifestKey)
			utils.PrintNextSteps(a.out,
				"Verify files in S3 console",
				"Set up Snowflake external stage pointing to bronze layer",
				"Run COPY INTO commands to load data to Snowflake raw schema",
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "S3 bucket (default: $S3_BUCKET_NAME)")
	cmd.Flags().StringVar(&region, "region", "", "AWS region (default: $AWS_REGION)")
	return cmd
}

func (a *app) notifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "notify <message> [status]",
		Short: "Send a Slack notification (status: success, failure, warning, info)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := notify.StatusInfo
			if len(args) == 2 {
				status = args[1]
			}
			n := notify.NewNotifier(a.cfg.SlackWebhookURL, a.logger)
			if err := n.Send(cmd.Context(), args[0], status); err != nil {
				return fmt.Errorf("failed to send Slack notification: %w", err)
			}
			fmt.Fprintln(a.out, "✅ Slack notification sent successfully")
			return nil
		},
	}
}

func (a *app) investigateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "investigate",
		Short: "Diagnose charges without a hospital dimension key",
	}

	add := func(use, short string, run func(*investigate.Investigator, *cobra.Command) error) {
		cmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(c *cobra.Command, args []string) error {
				wc, err := a.warehouseFromProfile()
				if err != nil {
					return err
				}
				defer wc.Disconnect()
				return run(investigate.NewInvestigator(wc, a.out, a.logger), c)
			},
		})
	}

	add("nulls", "Count and sample fact rows with a NULL hospital_key", func(inv *investigate.Investigator, c *cobra.Command) error {
		return inv.Nulls(c.Context())
	})
	add("missing-hospitals", "Compare orphaned hospital ids with dim_hospitals", func(inv *investigate.Investigator, c *cobra.Command) error {
		return inv.MissingHospitals(c.Context())
	})
	add("source-hospitals", "Check whether orphaned hospital ids exist in stg_hospitals", func(inv *investigate.Investigator, c *cobra.Command) error {
		return inv.SourceHospitals(c.Context())
	})
	return cmd
}

func (a *app) seedCommand() *cobra.Command {
	var (
		records    int
		seed       int64
		orphanRate float64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write synthetic CMS extracts under data/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("records") {
				records = utils.GetEnvInt("CLAIMS_SEED_RECORDS", records)
			}
			sp := populator.NewSamplePopulator(
				a.filesystem(),
				a.cfg.ProjectDir,
				generator.NewDataGenerator(seed, a.logger),
				records,
				orphanRate,
				a.logger,
			)

			a.logger.Info("Starting sample data generation...")
			written, err := sp.Populate(generator.CMSDatasets)
			if err != nil {
				return err
			}

			utils.PrintBanner(a.out, "Sample Data Summary")
			for _, d := range generator.CMSDatasets {
				fmt.Fprintf(a.out, "%-25s %6d rows  %s\n", d.Name, written[d.Name], sp.Path(d))
			}
			utils.PrintNextSteps(a.out, "Upload to the data lake: claims-ops upload")
			return nil
		},
	}
	cmd.Flags().IntVarP(&records, "records", "r", 100, "Number of hospitals to generate; charges and readmissions scale from it")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default: current time)")
	cmd.Flags().Float64Var(&orphanRate, "orphan-rate", 0.02, "Share of charges referencing hospitals missing from the master list")
	return cmd
}
