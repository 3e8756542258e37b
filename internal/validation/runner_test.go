package validation

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/vitebski/claims-ops/internal/connector"
	"github.com/vitebski/claims-ops/internal/gxcontext"
	"github.com/vitebski/claims-ops/internal/suites"
	"github.com/vitebski/claims-ops/pkg/models"
)

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func newTestRunner(t *testing.T, withCheckpoint bool) (*Runner, sqlmock.Sqlmock) {
	t.Helper()
	ws, _, err := gxcontext.Init(afero.NewMemMapFs(), "/project")
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.AddDatasource(&models.DatasourceConfig{Name: "snowflake_datasource", Type: "snowflake"}); err != nil {
		t.Fatal(err)
	}
	asset := &models.TableAsset{Name: "fct_inpatient_charges", TableName: "fct_inpatient_charges", SchemaName: "raw_marts"}
	if err := ws.AddTableAsset("snowflake_datasource", asset); err != nil {
		t.Fatal(err)
	}
	suite := &models.ExpectationSuite{
		Name: "marts.fct_inpatient_charges",
		Expectations: []models.Expectation{
			{Type: "expect_column_values_to_be_unique", Kwargs: map[string]interface{}{"column": "charge_key"}},
			{Type: "expect_table_row_count_to_be_between", Kwargs: map[string]interface{}{"min_value": 140000, "max_value": 150000}},
		},
	}
	if err := ws.SaveSuite(suite); err != nil {
		t.Fatal(err)
	}
	if withCheckpoint {
		if err := ws.SaveCheckpoint(suites.MartsCheckpoint()); err != nil {
			t.Fatal(err)
		}
	}

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	logger := createTestLogger()
	r := NewRunner(ws, connector.NewWithDB(db, &models.ConnectionProfile{Type: "snowflake"}, logger), logger)
	r.Now = func() time.Time { return time.Date(2026, 10, 18, 2, 30, 15, 123456000, time.UTC) }
	return r, mock
}

func TestRunStoresResultAndDocs(t *testing.T) {
	r, mock := newTestRunner(t, true)
	mock.ExpectQuery("GROUP BY charge_key HAVING").
		WillReturnRows(sqlmock.NewRows([]string{"ELEMENT_COUNT", "NONNULL_COUNT", "UNEXPECTED_COUNT"}).AddRow(int64(146427), int64(146427), int64(0)))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) AS observed_value").
		WillReturnRows(sqlmock.NewRows([]string{"OBSERVED_VALUE"}).AddRow(int64(139000)))

	result, err := r.Run(context.Background(), "marts_checkpoint")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.RunID != "20261018-023015-123456" {
		t.Errorf("Unexpected run id %s", result.RunID)
	}
	if result.Success {
		t.Error("Expected failure with row count below minimum")
	}
	if result.Statistics.EvaluatedExpectations != 2 || result.Statistics.SuccessfulExpectations != 1 {
		t.Errorf("Unexpected statistics: %+v", result.Statistics)
	}
	if result.Table != "raw_marts.fct_inpatient_charges" {
		t.Errorf("Unexpected table %s", result.Table)
	}

	stored, err := r.Workspace.LatestValidationResult("marts.fct_inpatient_charges")
	if err != nil {
		t.Fatalf("Expected stored result, got %v", err)
	}
	if stored.RunID != result.RunID {
		t.Errorf("Expected stored run %s, got %s", result.RunID, stored.RunID)
	}
	if ok, _ := afero.Exists(r.Workspace.Fs, r.Workspace.DataDocsPath()); !ok {
		t.Error("Expected data docs to be updated")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRunFallsBackToMartsBatch(t *testing.T) {
	r, mock := newTestRunner(t, false)
	mock.ExpectQuery("GROUP BY charge_key HAVING").
		WillReturnRows(sqlmock.NewRows([]string{"ELEMENT_COUNT", "NONNULL_COUNT", "UNEXPECTED_COUNT"}).AddRow(int64(10), int64(10), int64(0)))
	mock.ExpectQuery("observed_value").
		WillReturnRows(sqlmock.NewRows([]string{"OBSERVED_VALUE"}).AddRow("146427"))

	result, err := r.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !result.Success {
		t.Errorf("Expected success, got %+v", result.Statistics)
	}

	if _, err := r.Run(context.Background(), "staging_suite"); !errors.Is(err, gxcontext.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown checkpoint, got %v", err)
	}
}

func TestRunAbortsOnQueryError(t *testing.T) {
	r, mock := newTestRunner(t, true)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset by peer"))

	if _, err := r.Run(context.Background(), "marts_checkpoint"); err == nil {
		t.Fatal("Expected error when the warehouse is unreachable")
	}
	results, _ := r.Workspace.ListValidationResults("marts.fct_inpatient_charges")
	if len(results) != 0 {
		t.Errorf("Expected no stored results after abort, got %d", len(results))
	}
}

func TestSummarize(t *testing.T) {
	stats := Summarize([]models.ExpectationResult{{Success: true}, {Success: true}, {Success: false}})
	if stats.EvaluatedExpectations != 3 || stats.UnsuccessfulExpectations != 1 {
		t.Errorf("Unexpected statistics: %+v", stats)
	}
	if stats.SuccessPercent != 66.67 {
		t.Errorf("Expected 66.67, got %v", stats.SuccessPercent)
	}
	if Summarize(nil).SuccessPercent != 0 {
		t.Error("Expected 0 percent for empty results")
	}
}

func TestRunName(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 7000, time.UTC)
	name, err := RunName("", at)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if name != "20260102-030405-000007" {
		t.Errorf("Expected 20260102-030405-000007, got %s", name)
	}

	name, err = RunName("marts-%Y-%m-%d", at)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if name != "marts-2026-01-02" {
		t.Errorf("Expected marts-2026-01-02, got %s", name)
	}
}

func TestPrintValidationReport(t *testing.T) {
	count := int64(139000)
	var buf bytes.Buffer
	PrintValidationReport(&buf, &models.ValidationResult{
		Success:    false,
		Statistics: models.ValidationStatistics{EvaluatedExpectations: 2, SuccessfulExpectations: 1, UnsuccessfulExpectations: 1},
		Results: []models.ExpectationResult{
			{Expectation: models.Expectation{Type: "expect_column_values_to_not_be_null", Kwargs: map[string]interface{}{"column": "drg_key"}}, ObservedValue: 1.5, ElementCount: &count},
		},
	})
	out := buf.String()
	for _, want := range []string{"WARNING: Some expectations failed.", "Column: drg_key", "Total rows: 139000", "Failed: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected report to contain %q, got:\n%s", want, out)
		}
	}
}
