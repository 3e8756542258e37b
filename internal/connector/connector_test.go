package connector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/claims-ops/pkg/models"
)

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func TestDriverAndDSN(t *testing.T) {
	driver, dsn, err := DriverAndDSN(&models.ConnectionProfile{
		Type: "mysql", Host: "db", User: "u", Password: "p", Database: "claims",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if driver != "mysql" {
		t.Errorf("Expected driver 'mysql', got '%s'", driver)
	}
	if dsn != "u:p@tcp(db:3306)/claims?parseTime=true" {
		t.Errorf("Unexpected mysql dsn: %s", dsn)
	}

	driver, dsn, err = DriverAndDSN(&models.ConnectionProfile{
		Type: "postgres", Host: "pg", Port: "6543", User: "u", Password: "p", Database: "claims",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if driver != "postgres" || !strings.Contains(dsn, "port=6543") {
		t.Errorf("Unexpected postgres driver/dsn: %s %s", driver, dsn)
	}

	driver, dsn, err = DriverAndDSN(&models.ConnectionProfile{
		Type: "sqlserver", Host: "mssql", User: "u", Password: "p", Database: "claims",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if driver != "sqlserver" || !strings.HasPrefix(dsn, "sqlserver://u:p@mssql:1433") {
		t.Errorf("Unexpected sqlserver driver/dsn: %s %s", driver, dsn)
	}

	driver, dsn, err = DriverAndDSN(&models.ConnectionProfile{
		Type: "snowflake", Account: "xy12345", User: "u", Password: "p",
		Database: "HEALTHCARE_ANALYTICS", Warehouse: "transforming_wh", Role: "SYSADMIN",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if driver != "snowflake" || !strings.Contains(dsn, "warehouse=transforming_wh") {
		t.Errorf("Unexpected snowflake driver/dsn: %s %s", driver, dsn)
	}

	if _, _, err := DriverAndDSN(&models.ConnectionProfile{Type: "oracle"}); err == nil {
		t.Error("Expected error for unsupported warehouse type")
	}
}

func TestExecuteQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"TOTAL_ROWS", "NAME"}).
		AddRow(int64(42), []byte("general")).
		AddRow(int64(7), nil)
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	wc := NewWithDB(db, &models.ConnectionProfile{Type: "snowflake", Database: "X"}, createTestLogger())
	result, err := wc.ExecuteQuery(context.Background(), "SELECT COUNT(*) AS total_rows, name FROM t")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(result))
	}
	if result[0]["total_rows"] != int64(42) {
		t.Errorf("Expected lower-cased column total_rows=42, got %v", result[0]["total_rows"])
	}
	if result[0]["name"] != "general" {
		t.Errorf("Expected []byte converted to string, got %v", result[0]["name"])
	}
	if result[1]["name"] != nil {
		t.Errorf("Expected nil for NULL value, got %v", result[1]["name"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestExecuteQueryClassifiesMissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("SQL compilation error: Object 'RAW_MARTS.FCT' does not exist or not authorized."))

	wc := NewWithDB(db, &models.ConnectionProfile{Type: "snowflake", Database: "X"}, createTestLogger())
	_, err = wc.ExecuteQuery(context.Background(), "SELECT 1 FROM raw_marts.fct")
	if !errors.Is(err, ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}
}

func TestClassifyErrorPassthrough(t *testing.T) {
	orig := errors.New("network unreachable")
	if ClassifyError(orig) != orig {
		t.Error("Expected unrelated errors to pass through unchanged")
	}
	if ClassifyError(nil) != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestDialect(t *testing.T) {
	sf := DialectFor("snowflake")
	table, err := sf.QualifiedTable("raw_marts", "fct_inpatient_charges")
	if err != nil || table != "raw_marts.fct_inpatient_charges" {
		t.Errorf("Unexpected qualified table: %s %v", table, err)
	}
	if _, err := sf.QualifiedTable("raw_marts", "x; DROP TABLE y"); err == nil {
		t.Error("Expected error for unsafe identifier")
	}

	median, err := sf.Median("avg_covered_charges")
	if err != nil || median != "MEDIAN(avg_covered_charges)" {
		t.Errorf("Unexpected snowflake median: %s %v", median, err)
	}
	if _, err := DialectFor("mysql").Median("x"); err == nil {
		t.Error("Expected median to be unsupported on mysql")
	}

	lit, _ := sf.Literal("O'Hare")
	if lit != "'O''Hare'" {
		t.Errorf("Expected escaped literal, got %s", lit)
	}
	lit, _ = DialectFor("sqlserver").Literal(true)
	if lit != "1" {
		t.Errorf("Expected sqlserver boolean literal 1, got %s", lit)
	}
	lit, _ = sf.Literal(true)
	if lit != "TRUE" {
		t.Errorf("Expected TRUE, got %s", lit)
	}
	lit, _ = sf.Literal(1.5)
	if lit != "1.5" {
		t.Errorf("Expected 1.5, got %s", lit)
	}
}
