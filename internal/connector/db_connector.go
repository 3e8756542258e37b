package connector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/sirupsen/logrus"
	"github.com/snowflakedb/gosnowflake"
	"github.com/vitebski/claims-ops/pkg/models"
)

// ErrTableNotFound is returned when the warehouse reports a missing or inaccessible table
var ErrTableNotFound = errors.New("table does not exist or is not authorized")

// WarehouseConnector handles warehouse connection and query execution
type WarehouseConnector struct {
	Profile *models.ConnectionProfile
	DB      *sql.DB
	Logger  *logrus.Logger
	dialect Dialect
}

// NewWarehouseConnector creates a new warehouse connector for a connection profile
func NewWarehouseConnector(profile *models.ConnectionProfile, logger *logrus.Logger) *WarehouseConnector {
	return &WarehouseConnector{
		Profile: profile,
		Logger:  logger,
		dialect: DialectFor(profile.Type),
	}
}

// NewWithDB wraps an already opened database handle
func NewWithDB(db *sql.DB, profile *models.ConnectionProfile, logger *logrus.Logger) *WarehouseConnector {
	wc := NewWarehouseConnector(profile, logger)
	wc.DB = db
	return wc
}

// Dialect returns the SQL dialect of the connected warehouse
func (wc *WarehouseConnector) Dialect() Dialect {
	return wc.dialect
}

// DriverAndDSN builds the database/sql driver name and DSN for a profile
func DriverAndDSN(p *models.ConnectionProfile) (string, string, error) {
	switch strings.ToLower(p.Type) {
	case "", "snowflake":
		dsn, err := gosnowflake.DSN(&gosnowflake.Config{
			Account:   p.Account,
			User:      p.User,
			Password:  p.Password,
			Database:  p.Database,
			Schema:    p.Schema,
			Warehouse: p.Warehouse,
			Role:      p.Role,
		})
		if err != nil {
			return "", "", fmt.Errorf("build snowflake dsn: %w", err)
		}
		return "snowflake", dsn, nil
	case "mysql":
		port := p.Port
		if port == "" {
			port = "3306"
		}
		return "mysql", fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", p.User, p.Password, p.Host, port, p.Database), nil
	case "postgres", "postgresql":
		port := p.Port
		if port == "" {
			port = "5432"
		}
		return "postgres", fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			p.Host, port, p.User, p.Password, p.Database), nil
	case "sqlserver", "mssql":
		port := p.Port
		if port == "" {
			port = "1433"
		}
		query := url.Values{}
		query.Add("database", p.Database)
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(p.User, p.Password),
			Host:     fmt.Sprintf("%s:%s", p.Host, port),
			RawQuery: query.Encode(),
		}
		return "sqlserver", u.String(), nil
	default:
		return "", "", fmt.Errorf("unsupported warehouse type %q", p.Type)
	}
}

// Connect establishes a connection to the warehouse
func (wc *WarehouseConnector) Connect(ctx context.Context) error {
	if wc.Profile.Database == "" {
		return fmt.Errorf("database name must be provided in the connection profile")
	}

	driver, dsn, err := DriverAndDSN(wc.Profile)
	if err != nil {
		return err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		wc.Logger.Errorf("Error connecting to %s warehouse: %v", driver, err)
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		wc.Logger.Errorf("Error pinging %s warehouse: %v", driver, err)
		db.Close()
		return err
	}

	wc.DB = db
	wc.Logger.Infof("Connected to %s warehouse: %s", driver, wc.Profile.Database)
	return nil
}

// Disconnect closes the warehouse connection
func (wc *WarehouseConnector) Disconnect() {
	if wc.DB != nil {
		if err := wc.DB.Close(); err != nil {
			wc.Logger.Errorf("Error closing warehouse connection: %v", err)
		} else {
			wc.Logger.Debug("Warehouse connection closed")
		}
		wc.DB = nil
	}
}

// ExecuteQuery executes a SQL query and returns the results
func (wc *WarehouseConnector) ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]map[string]interface{}, error) {
	if wc.DB == nil {
		if err := wc.Connect(ctx); err != nil {
			return nil, err
		}
	}

	rows, err := wc.DB.QueryContext(ctx, query, params...)
	if err != nil {
		wc.Logger.Debugf("Error executing query: %v", err)
		return nil, ClassifyError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		wc.Logger.Errorf("Error getting columns: %v", err)
		return nil, err
	}

	var results []map[string]interface{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			wc.Logger.Errorf("Error scanning row: %v", err)
			return nil, err
		}

		// Column names are lower-cased: Snowflake reports them upper-case
		row := make(map[string]interface{})
		for i, col := range columns {
			val := values[i]
			if b, ok := val.([]byte); ok {
				row[strings.ToLower(col)] = string(b)
			} else {
				row[strings.ToLower(col)] = val
			}
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		wc.Logger.Errorf("Error iterating rows: %v", err)
		return nil, err
	}

	return results, nil
}

// ClassifyError maps warehouse messages about missing objects to ErrTableNotFound
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "does not exist") || strings.Contains(msg, "not authorized") ||
		strings.Contains(msg, "invalid object name") || strings.Contains(msg, "doesn't exist") {
		return fmt.Errorf("%w: %v", ErrTableNotFound, err)
	}
	return err
}
