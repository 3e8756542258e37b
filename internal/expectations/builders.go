// Package expectations defines the data-quality rules applied to the marts
// tables and evaluates them inside the warehouse.
package expectations

import (
	"github.com/vitebski/claims-ops/internal/config"
	"github.com/vitebski/claims-ops/pkg/models"
)

// Supported expectation types
const (
	TypeUnique         = "expect_column_values_to_be_unique"
	TypeNotNull        = "expect_column_values_to_not_be_null"
	TypeNull           = "expect_column_values_to_be_null"
	TypeBetween        = "expect_column_values_to_be_between"
	TypeInSet          = "expect_column_values_to_be_in_set"
	TypeRowCount       = "expect_table_row_count_to_be_between"
	TypeMeanBetween    = "expect_column_mean_to_be_between"
	TypeMedianBetween  = "expect_column_median_to_be_between"
	TypeInTypeList     = "expect_column_values_to_be_in_type_list"
	defaultMaxRowCount = 10000000
)

// BasicTables are the marts tables that get a row-count suite from CreateAllSuites
var BasicTables = []string{
	"dim_hospitals",
	"dim_drg_codes",
	"dim_geography",
	"fct_readmissions",
	"fct_hospital_summary",
	"fct_state_summary",
}

// QualityFlagColumns are the boolean flags dbt derives on fct_inpatient_charges
var QualityFlagColumns = []string{
	"data_quality_flag_covered_charges_issue",
	"data_quality_flag_capped_markup_ratio",
	"has_orphaned_hospital",
	"has_data_quality_issues",
}

func column(expType, col string, kwargs map[string]interface{}) models.Expectation {
	kw := map[string]interface{}{"column": col}
	for k, v := range kwargs {
		kw[k] = v
	}
	return models.Expectation{Type: expType, Kwargs: kw}
}

// MartsInpatientChargesSuite returns the rules for fct_inpatient_charges
func MartsInpatientChargesSuite() *models.ExpectationSuite {
	exps := []models.Expectation{
		column(TypeUnique, "charge_key", nil),
		column(TypeNotNull, "charge_key", nil),
		column(TypeNotNull, "drg_key", nil),
		column(TypeBetween, "avg_covered_charges", map[string]interface{}{"min_value": 0, "max_value": 9999999}),
		column(TypeBetween, "markup_ratio", map[string]interface{}{"min_value": 1.0, "max_value": 100.0}),
	}
	for _, col := range QualityFlagColumns {
		exps = append(exps, column(TypeInSet, col, map[string]interface{}{"value_set": []interface{}{true, false}}))
	}
	exps = append(exps, models.Expectation{
		Type:   TypeRowCount,
		Kwargs: map[string]interface{}{"min_value": 140000, "max_value": 150000},
	})

	return &models.ExpectationSuite{
		Name:         config.MartsSuiteName(config.MartsTable),
		Expectations: exps,
		Meta:         map[string]interface{}{"table": config.MartsTable, "schema": config.MartsSchema},
	}
}

// BasicTableSuite returns a row-count-only suite for a marts table
func BasicTableSuite(table string) *models.ExpectationSuite {
	return &models.ExpectationSuite{
		Name: config.MartsSuiteName(table),
		Expectations: []models.Expectation{{
			Type:   TypeRowCount,
			Kwargs: map[string]interface{}{"min_value": 1, "max_value": defaultMaxRowCount},
		}},
		Meta: map[string]interface{}{"table": table, "schema": config.MartsSchema},
	}
}

// ProfilingExpectations returns the statistical rules added by suite profiling
func ProfilingExpectations() []models.Expectation {
	return []models.Expectation{
		column(TypeMeanBetween, "avg_covered_charges", map[string]interface{}{"min_value": 0, "max_value": 9999999, "mostly": 0.95}),
		column(TypeMedianBetween, "avg_covered_charges", map[string]interface{}{"min_value": 0, "max_value": 9999999, "mostly": 0.95}),
		column(TypeInTypeList, "has_orphaned_hospital", map[string]interface{}{"type_list": []interface{}{"BOOLEAN"}}),
	}
}

// Upsert adds exp to the suite, replacing a rule with the same type, column and mostly setting.
// It reports whether an existing rule was replaced.
func Upsert(suite *models.ExpectationSuite, exp models.Expectation) bool {
	for i, existing := range suite.Expectations {
		if sameRule(existing, exp) {
			suite.Expectations[i] = exp
			return true
		}
	}
	suite.Expectations = append(suite.Expectations, exp)
	return false
}

func sameRule(a, b models.Expectation) bool {
	if a.Type != b.Type || a.Column() != b.Column() {
		return false
	}
	_, am := a.Kwargs["mostly"]
	_, bm := b.Kwargs["mostly"]
	return am == bm
}
