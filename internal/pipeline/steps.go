package pipeline

import (
	"github.com/vitebski/claims-ops/internal/config"
)

// SelfCommand in a step command is replaced by the path of the running binary
const SelfCommand = "claims-ops"

// Step names of the enhanced pipeline
const (
	StepDeps         = "deps"
	StepStaging      = "staging"
	StepIntermediate = "intermediate"
	StepMarts        = "marts"
	StepTests        = "tests"
	StepValidate     = "gx"
	StepDocs         = "docs"
	StepDataDocs     = "gx_docs"
)

// PlainCheckpoints are run by the plain quality pipeline
var PlainCheckpoints = []string{"marts_suite", "staging_suite", "full_pipeline"}

// EnhancedSteps returns the layered dbt build with tests, validation and docs.
// workspaceReady gates the validation steps.
func EnhancedSteps(workspaceReady func() bool) []Step {
	return []Step{
		{
			Name: StepDeps, Description: "Installing dbt packages", Command: "dbt deps",
			FailMessage: "dbt deps had issues",
		},
		{
			Name: StepStaging, Description: "Building staging models", Command: "dbt run --select staging",
			Required: true, DependsOn: []string{StepDeps}, FailMessage: "Staging models failed",
		},
		{
			Name: StepIntermediate, Description: "Building intermediate models", Command: "dbt run --select intermediate",
			Required: true, DependsOn: []string{StepStaging}, FailMessage: "Intermediate models failed",
		},
		{
			Name: StepMarts, Description: "Building marts models", Command: "dbt run --select marts",
			Required: true, DependsOn: []string{StepIntermediate}, FailMessage: "Marts models failed",
		},
		{
			Name: StepTests, Description: "Running dbt tests", Command: "dbt test",
			DependsOn: []string{StepMarts}, FailMessage: "Some dbt tests failed",
		},
		{
			Name: StepValidate, Description: "Running data validation", Command: SelfCommand + " checkpoint run " + config.CheckpointName,
			DependsOn: []string{StepMarts}, Condition: workspaceReady,
			SkipMessage: "Validation workspace not configured (skipping)",
			FailMessage: "Data validation had issues",
		},
		{
			Name: StepDocs, Description: "Generating dbt documentation", Command: "dbt docs generate",
			DependsOn: []string{StepTests, StepValidate}, FailMessage: "Documentation generation had issues",
		},
		{
			Name: StepDataDocs, Description: "Building data docs", Command: SelfCommand + " docs build",
			DependsOn: []string{StepTests, StepValidate}, Condition: workspaceReady,
			FailMessage: "Data docs generation had issues",
		},
	}
}

// QualitySteps returns the plain sequence: build, test, validate, document
func QualitySteps(workspaceReady func() bool) []Step {
	steps := []Step{
		{
			Name: "run", Description: "Building dbt models", Command: "dbt run",
			Required: true, FailMessage: "Pipeline failed at dbt run",
		},
		{
			Name: "test", Description: "Running dbt tests", Command: "dbt test",
			DependsOn: []string{"run"}, FailMessage: "Some dbt tests failed, but continuing...",
		},
	}
	prev := "test"
	for i, cp := range PlainCheckpoints {
		step := Step{
			Name: "checkpoint_" + cp, Description: "Running checkpoint: " + cp,
			Command:   SelfCommand + " checkpoint run " + cp,
			DependsOn: []string{prev}, Condition: workspaceReady,
			FailMessage: "Checkpoint " + cp + " had issues",
		}
		if i == 0 {
			step.SkipMessage = "Validation workspace not configured yet. Run: claims-ops init to set it up"
		}
		steps = append(steps, step)
		prev = step.Name
	}
	steps = append(steps,
		Step{
			Name: "docs", Description: "Generating dbt documentation", Command: "dbt docs generate",
			DependsOn: []string{prev}, FailMessage: "Documentation generation had issues",
		},
		Step{
			Name: "data_docs", Description: "Building data docs", Command: SelfCommand + " docs build",
			DependsOn: []string{"docs"}, Condition: workspaceReady,
			FailMessage: "Data docs generation had issues",
		},
	)
	return steps
}
