package connector

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var identRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_$]*$`)

// IsSafeIdentifier reports whether value can be interpolated into SQL as an identifier
func IsSafeIdentifier(value string) bool {
	return identRegex.MatchString(value)
}

// Dialect captures the SQL differences between supported warehouses
type Dialect struct {
	Name string
}

// DialectFor returns the dialect for a profile type
func DialectFor(warehouseType string) Dialect {
	switch strings.ToLower(warehouseType) {
	case "mysql":
		return Dialect{Name: "mysql"}
	case "postgres", "postgresql":
		return Dialect{Name: "postgres"}
	case "sqlserver", "mssql":
		return Dialect{Name: "sqlserver"}
	default:
		return Dialect{Name: "snowflake"}
	}
}

// QualifiedTable returns schema.table after validating both identifiers.
// Identifiers stay unquoted so Snowflake resolves dbt's upper-cased names.
func (d Dialect) QualifiedTable(schema, table string) (string, error) {
	if !IsSafeIdentifier(table) {
		return "", fmt.Errorf("unsafe table identifier %q", table)
	}
	if schema == "" {
		return table, nil
	}
	if !IsSafeIdentifier(schema) {
		return "", fmt.Errorf("unsafe schema identifier %q", schema)
	}
	return schema + "." + table, nil
}

// Column validates and returns a column identifier
func (d Dialect) Column(name string) (string, error) {
	if !IsSafeIdentifier(name) {
		return "", fmt.Errorf("unsafe column identifier %q", name)
	}
	return name, nil
}

// Median returns an aggregate expression computing the median of col
func (d Dialect) Median(col string) (string, error) {
	switch d.Name {
	case "snowflake":
		return fmt.Sprintf("MEDIAN(%s)", col), nil
	case "postgres":
		return fmt.Sprintf("PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY %s)", col), nil
	default:
		return "", fmt.Errorf("median is not supported on %s", d.Name)
	}
}

// NumericCast casts col to a floating point type for averaging
func (d Dialect) NumericCast(col string) string {
	switch d.Name {
	case "mysql":
		return fmt.Sprintf("CAST(%s AS DOUBLE)", col)
	case "sqlserver":
		return fmt.Sprintf("CAST(%s AS FLOAT)", col)
	default:
		return fmt.Sprintf("CAST(%s AS DOUBLE PRECISION)", col)
	}
}

// Literal renders a Go value as a SQL literal
func (d Dialect) Literal(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if d.Name == "sqlserver" || d.Name == "mysql" {
			if val {
				return "1", nil
			}
			return "0", nil
		}
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), nil
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'", nil
	default:
		return "", fmt.Errorf("unsupported literal type %T", v)
	}
}
