package investigate

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"

	"github.com/vitebski/claims-ops/internal/connector"
	"github.com/vitebski/claims-ops/pkg/models"
)

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func newMockInvestigator(t *testing.T) (*Investigator, sqlmock.Sqlmock, *bytes.Buffer) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	wc := connector.NewWithDB(db, &models.ConnectionProfile{Type: "snowflake", Database: "HEALTHCARE_ANALYTICS"}, createTestLogger())
	out := &bytes.Buffer{}
	return NewInvestigator(wc, out, createTestLogger()), mock, out
}

func TestNullHospitalKeyStats(t *testing.T) {
	inv, mock, _ := newMockInvestigator(t)
	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) - COUNT(hospital_key) AS rows_with_null_hospital_key")).
		WillReturnRows(sqlmock.NewRows([]string{"TOTAL_ROWS", "ROWS_WITH_HOSPITAL_KEY", "ROWS_WITH_NULL_HOSPITAL_KEY", "PCT_NULL"}).
			AddRow(int64(146427), int64(139810), int64(6617), "4.52"))

	stats, err := inv.NullHospitalKeyStats(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	want := NullKeyStats{TotalRows: 146427, WithKey: 139810, NullKey: 6617, PercentNull: 4.52}
	if stats != want {
		t.Errorf("Expected %+v, got %+v", want, stats)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestNullsPrintsSampleAndCauses(t *testing.T) {
	inv, mock, out := newMockInvestigator(t)
	mock.ExpectQuery(regexp.QuoteMeta("AS pct_null")).
		WillReturnRows(sqlmock.NewRows([]string{"total_rows", "rows_with_hospital_key", "rows_with_null_hospital_key", "pct_null"}).
			AddRow(int64(1000), int64(990), int64(10), float64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE hospital_key IS NULL\nLIMIT 10")).
		WillReturnRows(sqlmock.NewRows([]string{"hospital_id", "drg_code", "charge_key", "total_discharges", "avg_covered_charges"}).
			AddRow("450890", "470", "abc123", int64(42), float64(65432.1)))

	if err := inv.Nulls(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	text := out.String()
	for _, want := range []string{"Total rows: 1,000", "Percentage NULL: 1.00%", "450890", "$65,432.1", "Possible causes:"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, text)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestNullsSkipsSampleWhenClean(t *testing.T) {
	inv, mock, out := newMockInvestigator(t)
	mock.ExpectQuery(regexp.QuoteMeta("AS pct_null")).
		WillReturnRows(sqlmock.NewRows([]string{"total_rows", "rows_with_hospital_key", "rows_with_null_hospital_key", "pct_null"}).
			AddRow(int64(1000), int64(1000), int64(0), float64(0)))

	if err := inv.Nulls(context.Background()); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out.String(), "Possible causes") {
		t.Error("Expected no causes when no keys are missing")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSourceHospitalsSummary(t *testing.T) {
	inv, mock, out := newMockInvestigator(t)
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN raw_staging.stg_hospitals s")).
		WillReturnRows(sqlmock.NewRows([]string{"hospital_id", "source_status", "facility_name", "state", "charge_records"}).
			AddRow("450890", "EXISTS in stg_hospitals", "LONE STAR REGIONAL MEDICAL CENTER OF NORTH TEXAS", "TX", int64(57)).
			AddRow("999999", "MISSING from stg_hospitals (not in source data)", nil, nil, int64(3)))

	if err := inv.SourceHospitals(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	text := out.String()
	for _, want := range []string{
		"Hospitals that EXIST in stg_hospitals: 1",
		"Hospitals MISSING from stg_hospitals: 1",
		"ISSUE FOUND",
		"N/A",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, text)
		}
	}
	if strings.Contains(text, "NORTH TEXAS") {
		t.Error("Expected long facility names to be truncated")
	}
}

func TestMissingHospitalsQueryError(t *testing.T) {
	inv, mock, _ := newMockInvestigator(t)
	mock.ExpectQuery("SELECT").WillReturnError(connector.ErrTableNotFound)

	if err := inv.MissingHospitals(context.Background()); err == nil {
		t.Error("Expected error when the marts table is missing")
	}
}
