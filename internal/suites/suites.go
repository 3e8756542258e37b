// Package suites builds the datasource, assets, expectation suites and
// checkpoints stored in the validation workspace.
package suites

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/claims-ops/internal/config"
	"github.com/vitebski/claims-ops/internal/connector"
	"github.com/vitebski/claims-ops/internal/ensure"
	"github.com/vitebski/claims-ops/internal/expectations"
	"github.com/vitebski/claims-ops/internal/gxcontext"
	"github.com/vitebski/claims-ops/internal/utils"
	"github.com/vitebski/claims-ops/pkg/models"
)

// ErrTableMissing is returned when an asset's table has not been built by dbt yet
var ErrTableMissing = errors.New("table has not been built")

// Manager performs suite and checkpoint operations on one workspace
type Manager struct {
	Workspace *gxcontext.Context
	Confirm   ensure.Confirmer
	Logger    *logrus.Logger
	Out       io.Writer
	// Warehouse, when set, is probed before an asset is registered
	Warehouse expectations.Querier
}

// NewManager creates a Manager
func NewManager(ws *gxcontext.Context, confirm ensure.Confirmer, out io.Writer, logger *logrus.Logger) *Manager {
	return &Manager{Workspace: ws, Confirm: confirm, Logger: logger, Out: out}
}

// lookup translates workspace misses into ensure.ErrNotFound
func lookup(err error) error {
	if errors.Is(err, gxcontext.ErrNotFound) {
		return fmt.Errorf("%w: %v", ensure.ErrNotFound, err)
	}
	return err
}

// requireDatasource fails with setup guidance when the datasource is not configured
func (m *Manager) requireDatasource() (*models.DatasourceConfig, error) {
	ds, err := m.Workspace.GetDatasource(config.DatasourceName)
	if errors.Is(err, gxcontext.ErrNotFound) {
		fmt.Fprintln(m.Out, "ERROR: Snowflake datasource not configured.")
		fmt.Fprintln(m.Out, "Run: claims-ops datasource configure first")
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(m.Out, "Found datasource: %s\n", ds.Name)
	return ds, nil
}

// ensureAsset registers a table asset on the datasource unless it already exists
func (m *Manager) ensureAsset(ctx context.Context, table string) error {
	if _, err := m.Workspace.GetAsset(config.DatasourceName, table); err == nil {
		fmt.Fprintf(m.Out, "Asset '%s' already exists. Using existing asset.\n", table)
		return nil
	} else if !errors.Is(err, gxcontext.ErrNotFound) {
		return err
	}

	if m.Warehouse != nil {
		qualified, err := m.Warehouse.Dialect().QualifiedTable(config.MartsSchema, table)
		if err != nil {
			return err
		}
		m.Logger.Debugf("Probing %s before registering asset", qualified)
		if _, err := m.Warehouse.ExecuteQuery(ctx, fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s", qualified)); err != nil {
			if errors.Is(err, connector.ErrTableNotFound) {
				return fmt.Errorf("%w: %s.%s: %v", ErrTableMissing, config.MartsSchema, table, err)
			}
			return fmt.Errorf("probe %s: %w", qualified, err)
		}
	}

	asset := &models.TableAsset{Name: table, Type: "table", TableName: table, SchemaName: config.MartsSchema}
	if err := m.Workspace.AddTableAsset(config.DatasourceName, asset); err != nil {
		return err
	}
	fmt.Fprintf(m.Out, "SUCCESS: Data asset created: %s\n", table)
	return nil
}

func (m *Manager) printTableMissing(table string) {
	fmt.Fprintln(m.Out)
	utils.PrintBanner(m.Out, "ERROR: Table does not exist in the warehouse!")
	fmt.Fprintf(m.Out, "\nThe table '%s' needs to be created first.\n", table)
	fmt.Fprintln(m.Out, "\nPlease run dbt to build the marts models:")
	fmt.Fprintf(m.Out, "  dbt run --select %s\n", table)
	fmt.Fprintln(m.Out, "\nOr run all marts models:")
	fmt.Fprintln(m.Out, "  dbt run --select marts.*")
	fmt.Fprintln(m.Out, "\nAfter the table exists, run this command again.")
}

func (m *Manager) suiteResource(suite *models.ExpectationSuite) ensure.Resource {
	return ensure.Resource{
		Kind: "Suite",
		Lookup: func() error {
			_, err := m.Workspace.GetSuite(suite.Name)
			return lookup(err)
		},
		Delete: func() error { return m.Workspace.DeleteSuite(suite.Name) },
		Create: func() error { return m.Workspace.SaveSuite(suite) },
	}
}

// CreateMartsSuite ensures the fct_inpatient_charges asset and its suite
func (m *Manager) CreateMartsSuite(ctx context.Context) (ensure.Outcome, error) {
	utils.PrintBanner(m.Out, "Create Expectation Suite for fct_inpatient_charges")

	if _, err := m.requireDatasource(); err != nil {
		return ensure.Found, err
	}

	fmt.Fprintln(m.Out, "\nCreating data asset...")
	if err := m.ensureAsset(ctx, config.MartsTable); err != nil {
		if errors.Is(err, ErrTableMissing) {
			m.printTableMissing(config.MartsTable)
		}
		return ensure.Found, fmt.Errorf("failed to create data asset: %w", err)
	}

	suite := expectations.MartsInpatientChargesSuite()
	outcome, err := ensure.Ensure(suite.Name, m.suiteResource(suite), m.Confirm, m.Logger)
	if err != nil {
		return outcome, err
	}

	if outcome == ensure.Found {
		fmt.Fprintf(m.Out, "\nSuite '%s' already exists. Keeping existing suite.\n", suite.Name)
		return outcome, nil
	}

	fmt.Fprintln(m.Out, "\nAdding expectations...")
	for _, exp := range suite.Expectations {
		fmt.Fprintf(m.Out, "  ✓ %s\n", describe(exp))
	}
	fmt.Fprintf(m.Out, "\nSUCCESS: Suite '%s' %s with %d expectations\n", suite.Name, outcome, len(suite.Expectations))
	utils.PrintNextSteps(m.Out,
		"Create checkpoint: claims-ops checkpoint create",
		"Run validation: claims-ops checkpoint run",
	)
	return outcome, nil
}

// CreateAllSuites creates row-count suites for the remaining marts tables.
// Per-table failures are logged and do not stop the loop.
func (m *Manager) CreateAllSuites(ctx context.Context) (created int, err error) {
	utils.PrintBanner(m.Out, "Create Expectation Suites for All Marts Tables")

	if _, err := m.requireDatasource(); err != nil {
		return 0, err
	}

	for _, table := range expectations.BasicTables {
		fmt.Fprintf(m.Out, "\nProcessing %s...\n", table)

		if err := m.ensureAsset(ctx, table); err != nil {
			m.Logger.Warnf("Skipping %s: %v", table, err)
			fmt.Fprintf(m.Out, "  ⚠ Could not create asset for %s\n", table)
			continue
		}

		suite := expectations.BasicTableSuite(table)
		if _, err := m.Workspace.GetSuite(suite.Name); err == nil {
			fmt.Fprintf(m.Out, "  Suite '%s' already exists, skipping\n", suite.Name)
			continue
		} else if !errors.Is(err, gxcontext.ErrNotFound) {
			m.Logger.Warnf("Could not read suite %s: %v", suite.Name, err)
			continue
		}

		if err := m.Workspace.SaveSuite(suite); err != nil {
			m.Logger.Warnf("Could not save suite %s: %v", suite.Name, err)
			continue
		}
		created++
		fmt.Fprintf(m.Out, "  ✓ Created suite '%s'\n", suite.Name)
	}

	fmt.Fprintf(m.Out, "\nSUCCESS: Created %d of %d suites\n", created, len(expectations.BasicTables))
	return created, nil
}

// AddProfilingExpectations merges the statistical rules into the marts suite
func (m *Manager) AddProfilingExpectations() (added, replaced int, err error) {
	utils.PrintBanner(m.Out, "Generate Data Profiles for fct_inpatient_charges")

	name := config.MartsSuiteName(config.MartsTable)
	suite, err := m.Workspace.GetSuite(name)
	if err != nil {
		if errors.Is(err, gxcontext.ErrNotFound) {
			fmt.Fprintln(m.Out, "ERROR: Marts suite not found. Run: claims-ops suite create-marts first")
		}
		return 0, 0, err
	}

	fmt.Fprintln(m.Out, "Adding profiling expectations...")
	for _, exp := range expectations.ProfilingExpectations() {
		if expectations.Upsert(suite, exp) {
			replaced++
		} else {
			added++
		}
		fmt.Fprintf(m.Out, "  ✓ %s\n", describe(exp))
	}

	if err := m.Workspace.SaveSuite(suite); err != nil {
		return added, replaced, err
	}

	fmt.Fprintln(m.Out, "\nSUCCESS: Data profiling expectations added!")
	utils.PrintNextSteps(m.Out,
		"Run validation: claims-ops checkpoint run",
		"Rebuild docs: claims-ops docs build",
		"Check data docs for statistical summaries",
	)
	return added, replaced, nil
}

// ShowSuite prints every expectation of a suite
func (m *Manager) ShowSuite(name string) error {
	suite, err := m.Workspace.GetSuite(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.Out, "Expectations in suite '%s':\n", suite.Name)
	utils.PrintSeparator(m.Out)
	for i, exp := range suite.Expectations {
		fmt.Fprintf(m.Out, "%d. %s %v\n\n", i+1, exp.Type, exp.Kwargs)
	}
	return nil
}

// DeleteSuite removes a suite
func (m *Manager) DeleteSuite(name string) error {
	if err := m.Workspace.DeleteSuite(name); err != nil {
		return err
	}
	fmt.Fprintf(m.Out, "SUCCESS: Deleted suite '%s'\n", name)
	return nil
}

func describe(exp models.Expectation) string {
	if col := exp.Column(); col != "" {
		return fmt.Sprintf("%s (%s)", exp.Type, col)
	}
	return exp.Type
}
