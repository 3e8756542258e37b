package suites

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/vitebski/claims-ops/internal/connector"
	"github.com/vitebski/claims-ops/internal/ensure"
	"github.com/vitebski/claims-ops/internal/gxcontext"
	"github.com/vitebski/claims-ops/pkg/models"
)

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func testProfile() *models.ConnectionProfile {
	return &models.ConnectionProfile{
		Type: "snowflake", Account: "xy12345", User: "analyst", Password: "s3cret",
		Database: "HEALTHCARE_ANALYTICS", Warehouse: "transforming_wh", Role: "ACCOUNTADMIN",
	}
}

func newTestManager(t *testing.T) (*Manager, *bytes.Buffer) {
	t.Helper()
	ws, _, err := gxcontext.Init(afero.NewMemMapFs(), "/project")
	if err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	return NewManager(ws, ensure.NonInteractive, out, createTestLogger()), out
}

func newConfiguredManager(t *testing.T) (*Manager, *bytes.Buffer) {
	t.Helper()
	m, out := newTestManager(t)
	if _, err := m.ConfigureDatasource(testProfile(), nil); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	return m, out
}

func TestConfigureDatasource(t *testing.T) {
	m, out := newTestManager(t)

	outcome, err := m.ConfigureDatasource(testProfile(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if outcome != ensure.Created {
		t.Errorf("Expected Created, got %s", outcome)
	}

	outcome, err = m.ConfigureDatasource(testProfile(), nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if outcome != ensure.Found {
		t.Errorf("Expected Found on second run, got %s", outcome)
	}
	if !strings.Contains(out.String(), "Use --force to replace") {
		t.Errorf("Expected force hint, got %s", out.String())
	}

	names, _ := m.Workspace.ListDatasources()
	if len(names) != 1 {
		t.Errorf("Expected exactly one datasource, got %v", names)
	}

	m.Confirm = ensure.StaticConfirmer(true)
	outcome, err = m.ConfigureDatasource(testProfile(), nil)
	if err != nil || outcome != ensure.Replaced {
		t.Errorf("Expected Replaced with force, got %s (%v)", outcome, err)
	}
}

func TestConfigureDatasourceRequiresCredentials(t *testing.T) {
	t.Setenv("SNOWFLAKE_PASSWORD", "")
	m, _ := newTestManager(t)

	profile := testProfile()
	profile.Password = ""
	if _, err := m.ConfigureDatasource(profile, nil); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("Expected ErrMissingCredentials, got %v", err)
	}
}

func TestDatasourceDefaultsPreferEnvironment(t *testing.T) {
	t.Setenv("SNOWFLAKE_ACCOUNT", "env-account")
	ds := DatasourceDefaults(testProfile())
	if ds.Account != "env-account" {
		t.Errorf("Expected account from environment, got %s", ds.Account)
	}
	if ds.Role != "ACCOUNTADMIN" {
		t.Errorf("Expected role from profile, got %s", ds.Role)
	}
	if DatasourceDefaults(nil).Role != "SYSADMIN" {
		t.Error("Expected SYSADMIN default without a profile")
	}
}

func TestCreateMartsSuiteRequiresDatasource(t *testing.T) {
	m, out := newTestManager(t)
	if _, err := m.CreateMartsSuite(context.Background()); !errors.Is(err, gxcontext.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(out.String(), "datasource configure") {
		t.Errorf("Expected setup guidance, got %s", out.String())
	}
}

func TestCreateMartsSuiteTwice(t *testing.T) {
	m, _ := newConfiguredManager(t)

	outcome, err := m.CreateMartsSuite(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if outcome != ensure.Created {
		t.Errorf("Expected Created, got %s", outcome)
	}

	outcome, err = m.CreateMartsSuite(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if outcome != ensure.Found {
		t.Errorf("Expected Found, got %s", outcome)
	}

	names, _ := m.Workspace.ListSuites()
	if len(names) != 1 || names[0] != "marts.fct_inpatient_charges" {
		t.Errorf("Expected exactly one marts suite, got %v", names)
	}
	suite, _ := m.Workspace.GetSuite(names[0])
	if len(suite.Expectations) != 10 {
		t.Errorf("Expected 10 expectations, got %d", len(suite.Expectations))
	}
}

func TestCreateMartsSuiteMissingTable(t *testing.T) {
	m, out := newConfiguredManager(t)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("Object 'RAW_MARTS.FCT_INPATIENT_CHARGES' does not exist or not authorized."))
	m.Warehouse = connector.NewWithDB(db, testProfile(), createTestLogger())

	_, err = m.CreateMartsSuite(context.Background())
	if !errors.Is(err, ErrTableMissing) {
		t.Errorf("Expected ErrTableMissing, got %v", err)
	}
	if !strings.Contains(out.String(), "dbt run --select fct_inpatient_charges") {
		t.Errorf("Expected dbt guidance, got %s", out.String())
	}
	if _, err := m.Workspace.GetAsset("snowflake_datasource", "fct_inpatient_charges"); !errors.Is(err, gxcontext.ErrNotFound) {
		t.Errorf("Expected no asset to be registered, got %v", err)
	}
}

func TestCreateAllSuites(t *testing.T) {
	m, _ := newConfiguredManager(t)

	created, err := m.CreateAllSuites(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if created != 6 {
		t.Errorf("Expected 6 suites created, got %d", created)
	}

	created, err = m.CreateAllSuites(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if created != 0 {
		t.Errorf("Expected existing suites to be skipped, got %d created", created)
	}
}

func TestAddProfilingExpectations(t *testing.T) {
	m, _ := newConfiguredManager(t)
	if _, _, err := m.AddProfilingExpectations(); !errors.Is(err, gxcontext.ErrNotFound) {
		t.Errorf("Expected ErrNotFound without marts suite, got %v", err)
	}

	if _, err := m.CreateMartsSuite(context.Background()); err != nil {
		t.Fatal(err)
	}
	added, replaced, err := m.AddProfilingExpectations()
	if err != nil || added != 3 || replaced != 0 {
		t.Errorf("Expected 3 added, got added=%d replaced=%d err=%v", added, replaced, err)
	}
	added, replaced, err = m.AddProfilingExpectations()
	if err != nil || added != 0 || replaced != 3 {
		t.Errorf("Expected 3 replaced, got added=%d replaced=%d err=%v", added, replaced, err)
	}
}

func TestShowAndDeleteSuite(t *testing.T) {
	m, out := newConfiguredManager(t)
	if _, err := m.CreateMartsSuite(context.Background()); err != nil {
		t.Fatal(err)
	}
	out.Reset()

	if err := m.ShowSuite("marts.fct_inpatient_charges"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out.String(), "10. expect_table_row_count_to_be_between") {
		t.Errorf("Expected numbered expectations, got %s", out.String())
	}

	if err := m.DeleteSuite("marts.fct_inpatient_charges"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := m.DeleteSuite("marts.fct_inpatient_charges"); !errors.Is(err, gxcontext.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestCreateCheckpoint(t *testing.T) {
	m, _ := newConfiguredManager(t)
	if _, err := m.CreateCheckpoint(); err == nil {
		t.Error("Expected error without asset and suite")
	}

	if _, err := m.CreateMartsSuite(context.Background()); err != nil {
		t.Fatal(err)
	}
	outcome, err := m.CreateCheckpoint()
	if err != nil || outcome != ensure.Created {
		t.Fatalf("Expected Created, got %s (%v)", outcome, err)
	}

	cp, err := m.Workspace.GetCheckpoint("marts_checkpoint")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !cp.HasAction(UpdateDataDocsAction) || !cp.HasAction(StoreValidationResultAction) {
		t.Errorf("Expected both actions, got %+v", cp.ActionList)
	}
	if cp.RunNameTemplate != "%Y%m%d-%H%M%S-%f" {
		t.Errorf("Unexpected run name template %s", cp.RunNameTemplate)
	}

	outcome, _ = m.CreateCheckpoint()
	if outcome != ensure.Found {
		t.Errorf("Expected Found on second run, got %s", outcome)
	}
}
