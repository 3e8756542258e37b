package expectations

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/claims-ops/internal/connector"
	"github.com/vitebski/claims-ops/pkg/models"
)

var martsTarget = Target{Schema: "raw_marts", Table: "fct_inpatient_charges"}

func newMockWarehouse(t *testing.T, warehouseType string) (*connector.WarehouseConnector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return connector.NewWithDB(db, &models.ConnectionProfile{Type: warehouseType}, logger), mock
}

func columnMapRows(elements, nonNull, unexpected int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"ELEMENT_COUNT", "NONNULL_COUNT", "UNEXPECTED_COUNT"}).
		AddRow(elements, nonNull, unexpected)
}

func TestMartsInpatientChargesSuite(t *testing.T) {
	suite := MartsInpatientChargesSuite()
	if suite.Name != "marts.fct_inpatient_charges" {
		t.Errorf("Expected suite name marts.fct_inpatient_charges, got %s", suite.Name)
	}
	if len(suite.Expectations) != 10 {
		t.Fatalf("Expected 10 expectations, got %d", len(suite.Expectations))
	}
	if suite.Expectations[0].Type != TypeUnique || suite.Expectations[0].Column() != "charge_key" {
		t.Errorf("Expected first rule to be unique charge_key, got %+v", suite.Expectations[0])
	}
	last := suite.Expectations[9]
	if last.Type != TypeRowCount || last.Kwargs["min_value"] != 140000 || last.Kwargs["max_value"] != 150000 {
		t.Errorf("Unexpected row count rule: %+v", last)
	}

	basic := BasicTableSuite("dim_hospitals")
	if basic.Name != "marts.dim_hospitals" || len(basic.Expectations) != 1 {
		t.Errorf("Unexpected basic suite: %+v", basic)
	}
}

func TestUpsert(t *testing.T) {
	suite := MartsInpatientChargesSuite()
	for _, exp := range ProfilingExpectations() {
		Upsert(suite, exp)
	}
	if len(suite.Expectations) != 13 {
		t.Fatalf("Expected 13 expectations after profiling, got %d", len(suite.Expectations))
	}

	for _, exp := range ProfilingExpectations() {
		if !Upsert(suite, exp) {
			t.Errorf("Expected %s on %s to replace an existing rule", exp.Type, exp.Column())
		}
	}
	if len(suite.Expectations) != 13 {
		t.Errorf("Expected profiling to be idempotent, got %d expectations", len(suite.Expectations))
	}
}

func TestEvaluateUnique(t *testing.T) {
	q, mock := newMockWarehouse(t, "snowflake")
	mock.ExpectQuery(regexp.QuoteMeta("FROM raw_marts.fct_inpatient_charges WHERE charge_key IS NOT NULL GROUP BY charge_key HAVING COUNT(*) > 1")).
		WillReturnRows(columnMapRows(100, 100, 0))

	res, err := Evaluate(context.Background(), q, martsTarget, models.Expectation{
		Type: TypeUnique, Kwargs: map[string]interface{}{"column": "charge_key"},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !res.Success {
		t.Errorf("Expected success, got %+v", res)
	}
	if res.ElementCount == nil || *res.ElementCount != 100 {
		t.Errorf("Expected element count 100, got %v", res.ElementCount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestEvaluateUniqueCountsEveryDuplicatedRow(t *testing.T) {
	q, mock := newMockWarehouse(t, "snowflake")
	// Values A, A, B: both A rows are duplicates
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY provider_id HAVING COUNT(*) > 1")).
		WillReturnRows(columnMapRows(3, 3, 2))

	res, err := Evaluate(context.Background(), q, martsTarget, models.Expectation{
		Type: TypeUnique, Kwargs: map[string]interface{}{"column": "provider_id", "mostly": 0.5},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.Success {
		t.Errorf("Expected failure with 2 of 3 rows duplicated under mostly 0.5, got %+v", res)
	}
	if res.UnexpectedCount == nil || *res.UnexpectedCount != 2 {
		t.Errorf("Expected unexpected count 2, got %v", res.UnexpectedCount)
	}
	if res.ObservedValue != 66.67 {
		t.Errorf("Expected observed value 66.67, got %v", res.ObservedValue)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestEvaluateNotNullWithMostly(t *testing.T) {
	q, mock := newMockWarehouse(t, "snowflake")
	mock.ExpectQuery(regexp.QuoteMeta("CASE WHEN drg_key IS NULL THEN 1")).WillReturnRows(columnMapRows(100, 97, 3))
	mock.ExpectQuery(regexp.QuoteMeta("CASE WHEN drg_key IS NULL THEN 1")).WillReturnRows(columnMapRows(100, 97, 3))

	strict := models.Expectation{Type: TypeNotNull, Kwargs: map[string]interface{}{"column": "drg_key"}}
	res, err := Evaluate(context.Background(), q, martsTarget, strict)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.Success {
		t.Error("Expected failure with 3 null rows")
	}
	if res.UnexpectedCount == nil || *res.UnexpectedCount != 3 {
		t.Errorf("Expected unexpected count 3, got %v", res.UnexpectedCount)
	}

	lenient := models.Expectation{Type: TypeNotNull, Kwargs: map[string]interface{}{"column": "drg_key", "mostly": 0.95}}
	res, err = Evaluate(context.Background(), q, martsTarget, lenient)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !res.Success {
		t.Error("Expected success with mostly=0.95")
	}
}

func TestEvaluateInSetBooleans(t *testing.T) {
	q, mock := newMockWarehouse(t, "snowflake")
	mock.ExpectQuery(regexp.QuoteMeta("has_orphaned_hospital NOT IN (TRUE, FALSE)")).
		WillReturnRows(columnMapRows(10, 10, 0))

	res, err := Evaluate(context.Background(), q, martsTarget, models.Expectation{
		Type:   TypeInSet,
		Kwargs: map[string]interface{}{"column": "has_orphaned_hospital", "value_set": []interface{}{true, false}},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !res.Success {
		t.Errorf("Expected success, got %+v", res)
	}
}

func TestEvaluateBetween(t *testing.T) {
	q, mock := newMockWarehouse(t, "snowflake")
	mock.ExpectQuery(regexp.QuoteMeta("markup_ratio IS NOT NULL AND (markup_ratio < 1 OR markup_ratio > 100)")).
		WillReturnRows(columnMapRows(50, 50, 2))

	res, err := Evaluate(context.Background(), q, martsTarget, models.Expectation{
		Type:   TypeBetween,
		Kwargs: map[string]interface{}{"column": "markup_ratio", "min_value": 1.0, "max_value": 100.0},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.Success {
		t.Error("Expected failure with 2 out-of-range rows")
	}
	if res.ObservedValue != 4.0 {
		t.Errorf("Expected 4%% unexpected, got %v", res.ObservedValue)
	}
}

func TestEvaluateRowCountFromString(t *testing.T) {
	q, mock := newMockWarehouse(t, "snowflake")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS observed_value FROM raw_marts.fct_inpatient_charges")).
		WillReturnRows(sqlmock.NewRows([]string{"OBSERVED_VALUE"}).AddRow("146427"))

	res, err := Evaluate(context.Background(), q, martsTarget, MartsInpatientChargesSuite().Expectations[9])
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !res.Success {
		t.Errorf("Expected row count within bounds, got %+v", res)
	}
	if res.ObservedValue != int64(146427) {
		t.Errorf("Expected observed 146427, got %v", res.ObservedValue)
	}
}

func TestEvaluateMedianUnsupported(t *testing.T) {
	q, _ := newMockWarehouse(t, "mysql")
	res, err := Evaluate(context.Background(), q, martsTarget, models.Expectation{
		Type: TypeMedianBetween, Kwargs: map[string]interface{}{"column": "avg_covered_charges", "min_value": 0},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.Success || res.ExceptionInfo == "" {
		t.Errorf("Expected exception info for unsupported median, got %+v", res)
	}
}

func TestEvaluateTypeList(t *testing.T) {
	q, mock := newMockWarehouse(t, "snowflake")
	mock.ExpectQuery(regexp.QuoteMeta("UPPER(column_name) = 'HAS_ORPHANED_HOSPITAL'")).
		WillReturnRows(sqlmock.NewRows([]string{"DATA_TYPE"}).AddRow("BOOLEAN"))

	res, err := Evaluate(context.Background(), q, martsTarget, ProfilingExpectations()[2])
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !res.Success || res.ObservedValue != "BOOLEAN" {
		t.Errorf("Expected BOOLEAN to match type list, got %+v", res)
	}
}

func TestEvaluateQueryErrorAborts(t *testing.T) {
	q, mock := newMockWarehouse(t, "snowflake")
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("Object 'RAW_MARTS.FCT_INPATIENT_CHARGES' does not exist or not authorized"))

	_, err := Evaluate(context.Background(), q, martsTarget, MartsInpatientChargesSuite().Expectations[0])
	if !errors.Is(err, connector.ErrTableNotFound) {
		t.Errorf("Expected ErrTableNotFound, got %v", err)
	}
}

func TestEvaluateUnknownType(t *testing.T) {
	q, _ := newMockWarehouse(t, "snowflake")
	res, err := Evaluate(context.Background(), q, martsTarget, models.Expectation{Type: "expect_magic"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if res.ExceptionInfo == "" {
		t.Error("Expected exception info for unknown type")
	}
}

func TestMostly(t *testing.T) {
	m, err := Mostly(models.Expectation{Kwargs: map[string]interface{}{}})
	if err != nil || m != 1 {
		t.Errorf("Expected default mostly 1, got %v (%v)", m, err)
	}
	if _, err := Mostly(models.Expectation{Kwargs: map[string]interface{}{"mostly": 1.5}}); err == nil {
		t.Error("Expected error for mostly > 1")
	}
}
