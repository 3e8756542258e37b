package expectations

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vitebski/claims-ops/internal/connector"
	"github.com/vitebski/claims-ops/pkg/models"
)

// Querier runs SQL against the warehouse holding the validated table
type Querier interface {
	ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]map[string]interface{}, error)
	Dialect() connector.Dialect
}

// Target is the physical table a suite is evaluated against
type Target struct {
	Schema string
	Table  string
}

// Evaluate computes one expectation inside the warehouse. Problems with the
// rule itself (unknown type, bad kwargs) are reported in ExceptionInfo; query
// failures are returned as errors so the caller can abort the run.
func Evaluate(ctx context.Context, q Querier, target Target, exp models.Expectation) (models.ExpectationResult, error) {
	result := models.ExpectationResult{Expectation: exp}
	d := q.Dialect()

	table, err := d.QualifiedTable(target.Schema, target.Table)
	if err != nil {
		result.ExceptionInfo = err.Error()
		return result, nil
	}

	switch exp.Type {
	case TypeUnique, TypeNotNull, TypeNull, TypeBetween, TypeInSet:
		return evaluateColumnMap(ctx, q, d, table, exp)
	case TypeRowCount:
		return evaluateAggregate(ctx, q, table, "COUNT(*)", exp)
	case TypeMeanBetween:
		col, err := d.Column(exp.Column())
		if err != nil {
			result.ExceptionInfo = err.Error()
			return result, nil
		}
		return evaluateAggregate(ctx, q, table, fmt.Sprintf("AVG(%s)", d.NumericCast(col)), exp)
	case TypeMedianBetween:
		col, err := d.Column(exp.Column())
		if err != nil {
			result.ExceptionInfo = err.Error()
			return result, nil
		}
		expr, err := d.Median(col)
		if err != nil {
			result.ExceptionInfo = err.Error()
			return result, nil
		}
		return evaluateAggregate(ctx, q, table, expr, exp)
	case TypeInTypeList:
		return evaluateTypeList(ctx, q, d, target, exp)
	default:
		result.ExceptionInfo = fmt.Sprintf("unsupported expectation type %q", exp.Type)
		return result, nil
	}
}

// unexpectedPredicate returns the SQL condition matching rows that break the rule
func unexpectedPredicate(d connector.Dialect, col string, exp models.Expectation) (string, error) {
	switch exp.Type {
	case TypeNotNull:
		return fmt.Sprintf("%s IS NULL", col), nil
	case TypeNull:
		return fmt.Sprintf("%s IS NOT NULL", col), nil
	case TypeBetween:
		var conds []string
		if v, ok := exp.Kwargs["min_value"]; ok && v != nil {
			lit, err := numericLiteral(d, v)
			if err != nil {
				return "", fmt.Errorf("min_value: %w", err)
			}
			conds = append(conds, fmt.Sprintf("%s < %s", col, lit))
		}
		if v, ok := exp.Kwargs["max_value"]; ok && v != nil {
			lit, err := numericLiteral(d, v)
			if err != nil {
				return "", fmt.Errorf("max_value: %w", err)
			}
			conds = append(conds, fmt.Sprintf("%s > %s", col, lit))
		}
		if len(conds) == 0 {
			return "", fmt.Errorf("min_value or max_value is required")
		}
		return fmt.Sprintf("%s IS NOT NULL AND (%s)", col, strings.Join(conds, " OR ")), nil
	case TypeInSet:
		values, ok := exp.Kwargs["value_set"].([]interface{})
		if !ok || len(values) == 0 {
			return "", fmt.Errorf("value_set is required")
		}
		lits := make([]string, 0, len(values))
		for _, v := range values {
			lit, err := d.Literal(v)
			if err != nil {
				return "", err
			}
			lits = append(lits, lit)
		}
		return fmt.Sprintf("%s IS NOT NULL AND %s NOT IN (%s)", col, col, strings.Join(lits, ", ")), nil
	}
	return "", fmt.Errorf("not a column map expectation: %s", exp.Type)
}

func evaluateColumnMap(ctx context.Context, q Querier, d connector.Dialect, table string, exp models.Expectation) (models.ExpectationResult, error) {
	result := models.ExpectationResult{Expectation: exp}

	col, err := d.Column(exp.Column())
	if err != nil {
		result.ExceptionInfo = err.Error()
		return result, nil
	}

	var query string
	if exp.Type == TypeUnique {
		// Every row holding a repeated value is unexpected, not only the extra copies.
		query = fmt.Sprintf("SELECT (SELECT COUNT(*) FROM %s) AS element_count, (SELECT COUNT(%s) FROM %s) AS nonnull_count, "+
			"(SELECT COALESCE(SUM(dup_count), 0) FROM (SELECT COUNT(*) AS dup_count FROM %s WHERE %s IS NOT NULL GROUP BY %s HAVING COUNT(*) > 1) dups) AS unexpected_count",
			table, col, table, table, col, col)
	} else {
		pred, err := unexpectedPredicate(d, col, exp)
		if err != nil {
			result.ExceptionInfo = err.Error()
			return result, nil
		}
		query = fmt.Sprintf("SELECT COUNT(*) AS element_count, COUNT(%s) AS nonnull_count, SUM(CASE WHEN %s THEN 1 ELSE 0 END) AS unexpected_count FROM %s",
			col, pred, table)
	}

	rows, err := q.ExecuteQuery(ctx, query)
	if err != nil {
		return result, fmt.Errorf("evaluate %s on %s: %w", exp.Type, exp.Column(), err)
	}
	if len(rows) == 0 {
		result.ExceptionInfo = "probe returned no rows"
		return result, nil
	}

	elements, _ := ToInt64(rows[0]["element_count"])
	nonNull, _ := ToInt64(rows[0]["nonnull_count"])
	unexpected, _ := ToInt64(rows[0]["unexpected_count"])
	result.ElementCount = &elements
	result.UnexpectedCount = &unexpected

	// Null checks are measured against every row, the rest against non-null rows.
	denominator := nonNull
	if exp.Type == TypeNotNull || exp.Type == TypeNull {
		denominator = elements
	}

	var unexpectedPercent float64
	if denominator > 0 {
		unexpectedPercent = float64(unexpected) / float64(denominator) * 100
	}
	result.ObservedValue = math.Round(unexpectedPercent*100) / 100

	mostly, err := Mostly(exp)
	if err != nil {
		result.ExceptionInfo = err.Error()
		return result, nil
	}
	if denominator == 0 {
		result.Success = true
	} else {
		result.Success = float64(denominator-unexpected)/float64(denominator) >= mostly
	}
	return result, nil
}

func evaluateAggregate(ctx context.Context, q Querier, table, expr string, exp models.Expectation) (models.ExpectationResult, error) {
	result := models.ExpectationResult{Expectation: exp}

	rows, err := q.ExecuteQuery(ctx, fmt.Sprintf("SELECT %s AS observed_value FROM %s", expr, table))
	if err != nil {
		return result, fmt.Errorf("evaluate %s: %w", exp.Type, err)
	}
	if len(rows) == 0 || rows[0]["observed_value"] == nil {
		result.ExceptionInfo = "no observed value"
		return result, nil
	}

	observed, err := ToFloat(rows[0]["observed_value"])
	if err != nil {
		result.ExceptionInfo = err.Error()
		return result, nil
	}
	if exp.Type == TypeRowCount {
		count := int64(observed)
		result.ObservedValue = count
		result.ElementCount = &count
	} else {
		result.ObservedValue = observed
	}

	ok, err := withinBounds(observed, exp)
	if err != nil {
		result.ExceptionInfo = err.Error()
		return result, nil
	}
	result.Success = ok
	return result, nil
}

func evaluateTypeList(ctx context.Context, q Querier, d connector.Dialect, target Target, exp models.Expectation) (models.ExpectationResult, error) {
	result := models.ExpectationResult{Expectation: exp}

	types, ok := exp.Kwargs["type_list"].([]interface{})
	if !ok || len(types) == 0 {
		result.ExceptionInfo = "type_list is required"
		return result, nil
	}

	var conds []string
	for _, pair := range [][2]string{{"table_schema", target.Schema}, {"table_name", target.Table}, {"column_name", exp.Column()}} {
		if pair[1] == "" {
			continue
		}
		lit, err := d.Literal(strings.ToUpper(pair[1]))
		if err != nil {
			result.ExceptionInfo = err.Error()
			return result, nil
		}
		conds = append(conds, fmt.Sprintf("UPPER(%s) = %s", pair[0], lit))
	}
	query := "SELECT data_type FROM information_schema.columns WHERE " + strings.Join(conds, " AND ")

	rows, err := q.ExecuteQuery(ctx, query)
	if err != nil {
		return result, fmt.Errorf("evaluate %s on %s: %w", exp.Type, exp.Column(), err)
	}
	if len(rows) == 0 {
		result.ExceptionInfo = fmt.Sprintf("column %s not found", exp.Column())
		return result, nil
	}

	observed := fmt.Sprintf("%v", rows[0]["data_type"])
	result.ObservedValue = observed
	for _, t := range types {
		if strings.EqualFold(fmt.Sprintf("%v", t), observed) {
			result.Success = true
			break
		}
	}
	return result, nil
}

func withinBounds(v float64, exp models.Expectation) (bool, error) {
	if raw, ok := exp.Kwargs["min_value"]; ok && raw != nil {
		min, err := ToFloat(raw)
		if err != nil {
			return false, fmt.Errorf("min_value: %w", err)
		}
		if v < min {
			return false, nil
		}
	}
	if raw, ok := exp.Kwargs["max_value"]; ok && raw != nil {
		max, err := ToFloat(raw)
		if err != nil {
			return false, fmt.Errorf("max_value: %w", err)
		}
		if v > max {
			return false, nil
		}
	}
	return true, nil
}

func numericLiteral(d connector.Dialect, v interface{}) (string, error) {
	f, err := ToFloat(v)
	if err != nil {
		return "", err
	}
	return d.Literal(f)
}

// Mostly returns the fraction of rows that must pass, defaulting to 1
func Mostly(exp models.Expectation) (float64, error) {
	raw, ok := exp.Kwargs["mostly"]
	if !ok || raw == nil {
		return 1, nil
	}
	m, err := ToFloat(raw)
	if err != nil {
		return 0, fmt.Errorf("mostly: %w", err)
	}
	if m < 0 || m > 1 {
		return 0, fmt.Errorf("mostly must be between 0 and 1, got %v", m)
	}
	return m, nil
}

// ToFloat converts a driver or JSON value to float64. Snowflake returns NUMBER columns as strings.
func ToFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(val), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
	default:
		return 0, fmt.Errorf("not a number: %v (%T)", v, v)
	}
}

// ToInt64 converts a driver value to int64, treating NULL as zero
func ToInt64(v interface{}) (int64, error) {
	if v == nil {
		return 0, nil
	}
	f, err := ToFloat(v)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
