// Package pipeline runs the dbt build, tests, validation and docs as a
// sequence of subprocess steps.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// ErrRequiredStepFailed is returned when a required step fails
var ErrRequiredStepFailed = errors.New("required pipeline step failed")

// Pipeline statuses
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

var banner = strings.Repeat("=", 60)

// StatusNotifier receives the final pipeline status
type StatusNotifier interface {
	SendPipelineStatus(ctx context.Context, status, message string) error
}

// StepOutcome records what happened to one step
type StepOutcome struct {
	Name    string
	Skipped bool
	Success bool
	Result  Result
}

// Report is the outcome of a whole pipeline run
type Report struct {
	Status   string
	Errors   []string
	Warnings []string
	Tests    TestSummary
	Steps    []StepOutcome
}

// Attempted reports whether the named step was executed
func (r *Report) Attempted(name string) bool {
	for _, s := range r.Steps {
		if s.Name == name && !s.Skipped {
			return true
		}
	}
	return false
}

// Runner executes pipeline steps in the project directory
type Runner struct {
	Executor Executor
	Fs       afero.Fs
	Dir      string
	// Self replaces SelfCommand in step commands
	Self     string
	Out      io.Writer
	Logger   *logrus.Logger
	Notifier StatusNotifier
	Now      func() time.Time
}

// NewRunner creates a Runner backed by real subprocesses
func NewRunner(dir, self string, out io.Writer, logger *logrus.Logger) *Runner {
	return &Runner{
		Executor: ExecExecutor{},
		Fs:       afero.NewOsFs(),
		Dir:      dir,
		Self:     self,
		Out:      out,
		Logger:   logger,
		Now:      time.Now,
	}
}

func (r *Runner) argv(step Step) ([]string, error) {
	argv, err := step.Argv()
	if err != nil {
		return nil, err
	}
	if argv[0] == SelfCommand && r.Self != "" {
		argv[0] = r.Self
	}
	return argv, nil
}

// runStep executes one step and prints its outcome
func (r *Runner) runStep(ctx context.Context, step Step) StepOutcome {
	fmt.Fprintf(r.Out, "\n%s\n", banner)
	fmt.Fprintf(r.Out, "📊 %s\n", step.Description)
	fmt.Fprintln(r.Out, banner)
	fmt.Fprintf(r.Out, "Running: %s\n\n", step.Command)

	outcome := StepOutcome{Name: step.Name}
	argv, err := r.argv(step)
	if err != nil {
		outcome.Result = Result{Stderr: err.Error(), ExitCode: -1}
		fmt.Fprintf(r.Out, "❌ Error in %s\n%s\n", step.Description, err)
		return outcome
	}

	r.Logger.Debugf("Executing %v in %s", argv, r.Dir)
	res, err := r.Executor.Run(ctx, r.Dir, argv)
	outcome.Result = res
	if err != nil {
		fmt.Fprintf(r.Out, "❌ Error in %s\n", step.Description)
		if res.Stderr != "" {
			fmt.Fprintln(r.Out, res.Stderr)
		} else {
			fmt.Fprintln(r.Out, err)
		}
		if !step.Required {
			fmt.Fprintln(r.Out, "⚠️  Continuing despite error...")
		}
		return outcome
	}

	outcome.Success = true
	fmt.Fprintf(r.Out, "✅ %s completed successfully\n", step.Description)
	if res.Stdout != "" {
		fmt.Fprintln(r.Out, res.Stdout)
	}
	return outcome
}

// execute runs the planned steps until a required step fails. afterStep is
// called after every executed step.
func (r *Runner) execute(ctx context.Context, steps []Step, report *Report, afterStep func(Step, StepOutcome)) error {
	ordered, err := Plan(steps)
	if err != nil {
		return err
	}

	for _, step := range ordered {
		if err := ctx.Err(); err != nil {
			return err
		}
		if step.Condition != nil && !step.Condition() {
			if step.SkipMessage != "" {
				fmt.Fprintf(r.Out, "\nℹ️  %s\n", step.SkipMessage)
			}
			report.Steps = append(report.Steps, StepOutcome{Name: step.Name, Skipped: true})
			continue
		}

		outcome := r.runStep(ctx, step)
		report.Steps = append(report.Steps, outcome)

		if !outcome.Success {
			if step.Required {
				report.Errors = append(report.Errors, step.FailMessage)
				report.Status = StatusFailed
				fmt.Fprintf(r.Out, "\n❌ Pipeline failed at %s\n", step.Description)
				return fmt.Errorf("%w: %s", ErrRequiredStepFailed, step.Name)
			}
			report.Warnings = append(report.Warnings, step.FailMessage)
		}
		if afterStep != nil {
			afterStep(step, outcome)
		}
	}
	return nil
}

// RunQuality runs the plain pipeline: dbt run, dbt test, checkpoints, docs.
// Only a dbt run failure is fatal.
func (r *Runner) RunQuality(ctx context.Context, workspaceReady func() bool) (*Report, error) {
	fmt.Fprintln(r.Out, "🚀 Starting Data Quality Pipeline")
	fmt.Fprintln(r.Out, banner)

	report := &Report{Status: StatusSuccess}
	if err := r.execute(ctx, QualitySteps(workspaceReady), report, nil); err != nil {
		return report, err
	}

	fmt.Fprintf(r.Out, "\n%s\n", banner)
	fmt.Fprintln(r.Out, "✅ Data Quality Pipeline Complete!")
	fmt.Fprintln(r.Out, banner)
	for _, w := range report.Warnings {
		fmt.Fprintf(r.Out, "⚠️  %s\n", w)
	}
	r.printDocsHint()
	return report, nil
}

// RunEnhanced runs the layered pipeline, summarises dbt tests and notifies the webhook with the final status
func (r *Runner) RunEnhanced(ctx context.Context, workspaceReady func() bool) (*Report, error) {
	fmt.Fprintln(r.Out, "🚀 Starting Enhanced Data Quality Pipeline")
	fmt.Fprintln(r.Out, banner)
	fmt.Fprintf(r.Out, "Timestamp: %s\n", r.Now().Format(time.RFC3339))
	fmt.Fprintln(r.Out, banner)

	report := &Report{Status: StatusSuccess}
	runErr := r.execute(ctx, EnhancedSteps(workspaceReady), report, func(step Step, _ StepOutcome) {
		if step.Name != StepTests {
			return
		}
		summary, err := LoadTestSummary(r.Fs, filepath.Join(r.Dir, "target", "run_results.json"))
		if err != nil {
			r.Logger.Warnf("Could not read dbt test results: %v", err)
		}
		report.Tests = summary
		fmt.Fprintln(r.Out, "\n📊 Test Summary:")
		fmt.Fprintf(r.Out, "   ✅ Passed: %d\n", summary.Passed)
		fmt.Fprintf(r.Out, "   ❌ Failed: %d\n", summary.Failed)
		fmt.Fprintf(r.Out, "   ⚠️  Warned: %d\n", summary.Warned)
		if summary.Failed > 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%d tests failed", summary.Failed))
		}
	})
	if runErr != nil && !errors.Is(runErr, ErrRequiredStepFailed) {
		report.Status = StatusFailed
		report.Errors = append(report.Errors, runErr.Error())
	}

	fmt.Fprintf(r.Out, "\n%s\n", banner)
	if report.Status == StatusSuccess && len(report.Errors) == 0 {
		fmt.Fprintln(r.Out, "✅ Pipeline Completed Successfully!")
		if len(report.Warnings) > 0 {
			fmt.Fprintf(r.Out, "⚠️  Warnings: %d\n", len(report.Warnings))
			for _, w := range report.Warnings {
				fmt.Fprintf(r.Out, "   - %s\n", w)
			}
		}
	} else {
		report.Status = StatusFailed
		fmt.Fprintln(r.Out, "❌ Pipeline Completed with Errors!")
		fmt.Fprintf(r.Out, "   Errors: %d\n", len(report.Errors))
		for _, e := range report.Errors {
			fmt.Fprintf(r.Out, "   - %s\n", e)
		}
	}
	fmt.Fprintln(r.Out, banner)
	r.printDocsHint()

	if r.Notifier != nil {
		message := fmt.Sprintf("Pipeline completed. Tests: %d passed, %d failed", report.Tests.Passed, report.Tests.Failed)
		if report.Status == StatusFailed {
			message = "Pipeline failed: " + strings.Join(report.Errors, "; ")
		}
		if err := r.Notifier.SendPipelineStatus(ctx, report.Status, message); err != nil {
			fmt.Fprintf(r.Out, "⚠️  Failed to send notification: %v\n", err)
		}
	}

	if report.Status == StatusFailed {
		if runErr == nil {
			runErr = ErrRequiredStepFailed
		}
		return report, runErr
	}
	return report, nil
}

func (r *Runner) printDocsHint() {
	fmt.Fprintln(r.Out, "\n📚 View documentation:")
	fmt.Fprintln(r.Out, "   - dbt docs: dbt docs serve")
	fmt.Fprintf(r.Out, "   - Data docs: %s docs build\n", SelfCommand)
}
