package suites

import (
	"errors"
	"fmt"

	"github.com/vitebski/claims-ops/internal/config"
	"github.com/vitebski/claims-ops/internal/ensure"
	"github.com/vitebski/claims-ops/internal/gxcontext"
	"github.com/vitebski/claims-ops/internal/utils"
	"github.com/vitebski/claims-ops/pkg/models"
)

// Checkpoint action class names
const (
	StoreValidationResultAction = "StoreValidationResultAction"
	UpdateDataDocsAction        = "UpdateDataDocsAction"
	RunNameTemplate             = "%Y%m%d-%H%M%S-%f"
)

// MartsCheckpoint returns the checkpoint validating fct_inpatient_charges
func MartsCheckpoint() *models.CheckpointConfig {
	return &models.CheckpointConfig{
		Name:                 config.CheckpointName,
		ConfigVersion:        1.0,
		ClassName:            "Checkpoint",
		RunNameTemplate:      RunNameTemplate,
		ExpectationSuiteName: config.MartsSuiteName(config.MartsTable),
		BatchRequest: models.BatchRequest{
			DatasourceName: config.DatasourceName,
			DataAssetName:  config.MartsTable,
		},
		ActionList: []models.CheckpointAction{
			{Name: "store_validation_result", Action: map[string]string{"class_name": StoreValidationResultAction}},
			{Name: "update_data_docs", Action: map[string]string{"class_name": UpdateDataDocsAction}},
		},
	}
}

// CreateCheckpoint ensures the marts checkpoint exists
func (m *Manager) CreateCheckpoint() (ensure.Outcome, error) {
	utils.PrintBanner(m.Out, "Create Validation Checkpoint")

	cp := MartsCheckpoint()
	if _, err := m.Workspace.GetAsset(cp.BatchRequest.DatasourceName, cp.BatchRequest.DataAssetName); err != nil {
		fmt.Fprintf(m.Out, "ERROR: Datasource or asset not found: %v\n", err)
		fmt.Fprintln(m.Out, "Make sure you've:")
		fmt.Fprintln(m.Out, "  1. Configured the warehouse: claims-ops datasource configure")
		fmt.Fprintln(m.Out, "  2. Created suite: claims-ops suite create-marts")
		return ensure.Found, err
	}
	if _, err := m.Workspace.GetSuite(cp.ExpectationSuiteName); err != nil {
		if errors.Is(err, gxcontext.ErrNotFound) {
			fmt.Fprintln(m.Out, "ERROR: Suite not found. Run: claims-ops suite create-marts")
		}
		return ensure.Found, err
	}

	fmt.Fprintln(m.Out, "Creating checkpoint...")
	outcome, err := ensure.Ensure(cp.Name, ensure.Resource{
		Kind: "Checkpoint",
		Lookup: func() error {
			_, err := m.Workspace.GetCheckpoint(cp.Name)
			return lookup(err)
		},
		Delete: func() error { return m.Workspace.DeleteCheckpoint(cp.Name) },
		Create: func() error { return m.Workspace.SaveCheckpoint(cp) },
	}, m.Confirm, m.Logger)
	if err != nil {
		return outcome, fmt.Errorf("failed to create checkpoint: %w", err)
	}

	if outcome == ensure.Found {
		fmt.Fprintf(m.Out, "Checkpoint '%s' already exists. Keeping existing checkpoint.\n", cp.Name)
		return outcome, nil
	}

	fmt.Fprintln(m.Out, "\nSUCCESS: Checkpoint created!")
	fmt.Fprintf(m.Out, "Checkpoint name: %s\n", cp.Name)
	utils.PrintNextSteps(m.Out, "Run validation: claims-ops checkpoint run")
	return outcome, nil
}
