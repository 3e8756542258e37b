// Package validation runs checkpoints against the warehouse and reports their results.
package validation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/claims-ops/internal/config"
	"github.com/vitebski/claims-ops/internal/docs"
	"github.com/vitebski/claims-ops/internal/expectations"
	"github.com/vitebski/claims-ops/internal/gxcontext"
	"github.com/vitebski/claims-ops/internal/suites"
	"github.com/vitebski/claims-ops/internal/utils"
	"github.com/vitebski/claims-ops/pkg/models"
)

// Runner executes checkpoints against the warehouse
type Runner struct {
	Workspace *gxcontext.Context
	Warehouse expectations.Querier
	Logger    *logrus.Logger
	Now       func() time.Time
}

// NewRunner creates a Runner
func NewRunner(ws *gxcontext.Context, warehouse expectations.Querier, logger *logrus.Logger) *Runner {
	return &Runner{Workspace: ws, Warehouse: warehouse, Logger: logger, Now: time.Now}
}

// checkpoint returns the named checkpoint, or the built-in marts checkpoint when it has not been created
func (r *Runner) checkpoint(name string) (*models.CheckpointConfig, error) {
	if name == "" {
		name = config.CheckpointName
	}
	cp, err := r.Workspace.GetCheckpoint(name)
	if err == nil {
		return cp, nil
	}
	if !errors.Is(err, gxcontext.ErrNotFound) {
		return nil, err
	}
	fallback := suites.MartsCheckpoint()
	if name != fallback.Name {
		return nil, err
	}
	r.Logger.Warnf("Checkpoint '%s' not found, validating %s directly", fallback.Name, fallback.BatchRequest.DataAssetName)
	return fallback, nil
}

// Run validates the checkpoint's suite against its asset, stores the result
// and runs the checkpoint's actions. Query failures abort the run.
func (r *Runner) Run(ctx context.Context, checkpointName string) (*models.ValidationResult, error) {
	cp, err := r.checkpoint(checkpointName)
	if err != nil {
		return nil, err
	}

	asset, err := r.Workspace.GetAsset(cp.BatchRequest.DatasourceName, cp.BatchRequest.DataAssetName)
	if err != nil {
		return nil, fmt.Errorf("could not get datasource/asset: %w", err)
	}
	suite, err := r.Workspace.GetSuite(cp.ExpectationSuiteName)
	if err != nil {
		return nil, fmt.Errorf("could not load suite: %w", err)
	}

	now := r.Now()
	runID, err := RunName(cp.RunNameTemplate, now)
	if err != nil {
		return nil, fmt.Errorf("invalid run name template %q: %w", cp.RunNameTemplate, err)
	}
	result := &models.ValidationResult{
		RunID:     runID,
		RunTime:   now.UTC(),
		SuiteName: suite.Name,
		Batch:     cp.BatchRequest,
		Table:     asset.SchemaName + "." + asset.TableName,
		Results:   make([]models.ExpectationResult, 0, len(suite.Expectations)),
	}

	target := expectations.Target{Schema: asset.SchemaName, Table: asset.TableName}
	for _, exp := range suite.Expectations {
		r.Logger.Debugf("Evaluating %s on %s", exp.Type, result.Table)
		res, err := expectations.Evaluate(ctx, r.Warehouse, target, exp)
		if err != nil {
			return nil, fmt.Errorf("validation of %s aborted: %w", suite.Name, err)
		}
		if res.ExceptionInfo != "" {
			r.Logger.Warnf("Expectation %s raised: %s", exp.Type, res.ExceptionInfo)
		}
		result.Results = append(result.Results, res)
	}
	result.Statistics = Summarize(result.Results)
	result.Success = result.Statistics.UnsuccessfulExpectations == 0

	if cp.HasAction(suites.StoreValidationResultAction) {
		path, err := r.Workspace.StoreValidationResult(result)
		if err != nil {
			return result, fmt.Errorf("store validation result: %w", err)
		}
		r.Logger.Debugf("Validation result stored at %s", path)
	}
	if cp.HasAction(suites.UpdateDataDocsAction) {
		if _, err := docs.Build(r.Workspace, now); err != nil {
			r.Logger.Warnf("Could not update data docs: %v", err)
		}
	}

	return result, nil
}

// Summarize computes run statistics
func Summarize(results []models.ExpectationResult) models.ValidationStatistics {
	stats := models.ValidationStatistics{EvaluatedExpectations: len(results)}
	for _, res := range results {
		if res.Success {
			stats.SuccessfulExpectations++
		}
	}
	stats.UnsuccessfulExpectations = stats.EvaluatedExpectations - stats.SuccessfulExpectations
	if stats.EvaluatedExpectations > 0 {
		pct := float64(stats.SuccessfulExpectations) / float64(stats.EvaluatedExpectations) * 100
		stats.SuccessPercent = math.Round(pct*100) / 100
	}
	return stats
}

// RunName expands a strftime run name template, %f being microseconds
func RunName(template string, t time.Time) (string, error) {
	if template == "" {
		template = suites.RunNameTemplate
	}
	return strftime.Format(template, t, strftime.WithMicroseconds('f'))
}

// PrintValidationReport prints the outcome of a run
func PrintValidationReport(w io.Writer, result *models.ValidationResult) {
	fmt.Fprintln(w)
	utils.PrintBanner(w, "Validation Results")
	fmt.Fprintln(w)

	if result.Success {
		fmt.Fprintln(w, "SUCCESS: All expectations passed!")
	} else {
		fmt.Fprintln(w, "WARNING: Some expectations failed.")
		fmt.Fprintf(w, "   Failed expectations: %d\n", result.Statistics.UnsuccessfulExpectations)
		fmt.Fprintln(w, "\nFailed expectations:")
		for _, res := range result.Results {
			if res.Success {
				continue
			}
			fmt.Fprintf(w, "   - %s\n", res.Expectation.Type)
			if col := res.Expectation.Column(); col != "" {
				fmt.Fprintf(w, "     Column: %s\n", col)
			}
			if res.ObservedValue != nil {
				fmt.Fprintf(w, "     Observed: %v\n", res.ObservedValue)
			}
			if res.ElementCount != nil {
				fmt.Fprintf(w, "     Total rows: %d\n", *res.ElementCount)
			}
			if res.ExceptionInfo != "" {
				fmt.Fprintf(w, "     Error: %s\n", res.ExceptionInfo)
			}
		}
	}

	fmt.Fprintln(w, "\nStatistics:")
	fmt.Fprintf(w, "  Total expectations: %d\n", result.Statistics.EvaluatedExpectations)
	fmt.Fprintf(w, "  Successful: %d\n", result.Statistics.SuccessfulExpectations)
	fmt.Fprintf(w, "  Failed: %d\n", result.Statistics.UnsuccessfulExpectations)
	fmt.Fprintf(w, "\nValidation results saved to: %s/%s/\n", gxcontext.DirName, gxcontext.ValidationDir)
}
