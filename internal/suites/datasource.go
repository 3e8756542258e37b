package suites

import (
	"errors"
	"fmt"

	"github.com/vitebski/claims-ops/internal/config"
	"github.com/vitebski/claims-ops/internal/ensure"
	"github.com/vitebski/claims-ops/internal/utils"
	"github.com/vitebski/claims-ops/pkg/models"
)

// ErrMissingCredentials is returned when account, user or password is empty
var ErrMissingCredentials = errors.New("account, username, and password are required")

// DatasourceDefaults returns the connection values offered as prompt defaults.
// SNOWFLAKE_* environment variables take precedence over the dbt profile.
func DatasourceDefaults(profile *models.ConnectionProfile) *models.DatasourceConfig {
	ds := &models.DatasourceConfig{
		Name:      config.DatasourceName,
		Type:      "snowflake",
		Database:  "HEALTHCARE_ANALYTICS",
		Warehouse: "transforming_wh",
		Role:      "SYSADMIN",
	}
	if profile != nil {
		ds.Type = valueOr(profile.Type, ds.Type)
		ds.Account = profile.Account
		ds.User = profile.User
		ds.Password = profile.Password
		ds.Database = valueOr(profile.Database, ds.Database)
		ds.Warehouse = valueOr(profile.Warehouse, ds.Warehouse)
		ds.Role = valueOr(profile.Role, ds.Role)
		ds.Host = profile.Host
		ds.Port = profile.Port
	}

	ds.Account = config.GetEnvOrDefault("SNOWFLAKE_ACCOUNT", ds.Account)
	ds.User = config.GetEnvOrDefault("SNOWFLAKE_USER", ds.User)
	ds.Password = config.GetEnvOrDefault("SNOWFLAKE_PASSWORD", ds.Password)
	ds.Database = config.GetEnvOrDefault("SNOWFLAKE_DATABASE", ds.Database)
	ds.Warehouse = config.GetEnvOrDefault("SNOWFLAKE_WAREHOUSE", ds.Warehouse)
	ds.Role = config.GetEnvOrDefault("SNOWFLAKE_ROLE", ds.Role)
	return ds
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// promptDatasource lets the user override each default
func promptDatasource(p ensure.Prompter, ds *models.DatasourceConfig) error {
	fields := []struct {
		label string
		value *string
	}{
		{"Account Locator", &ds.Account},
		{"Username", &ds.User},
		{"Database", &ds.Database},
		{"Warehouse", &ds.Warehouse},
		{"Role", &ds.Role},
	}
	for _, f := range fields {
		v, err := p.Input(f.label, *f.value)
		if err != nil {
			return err
		}
		*f.value = v
	}

	password, err := p.Password("Password (leave empty to keep the dbt profile password)")
	if err != nil {
		return err
	}
	if password != "" {
		ds.Password = password
	}
	return nil
}

// ConfigureDatasource ensures the warehouse datasource exists in the workspace
func (m *Manager) ConfigureDatasource(profile *models.ConnectionProfile, prompter ensure.Prompter) (ensure.Outcome, error) {
	utils.PrintBanner(m.Out, "Configure Snowflake Datasource")

	ds := DatasourceDefaults(profile)
	if profile != nil {
		fmt.Fprintln(m.Out, "Using defaults from dbt profiles.")
	}

	outcome, err := ensure.Ensure(ds.Name, ensure.Resource{
		Kind: "Datasource",
		Lookup: func() error {
			_, err := m.Workspace.GetDatasource(ds.Name)
			return lookup(err)
		},
		Delete: func() error { return m.Workspace.DeleteDatasource(ds.Name) },
		Create: func() error {
			if prompter != nil {
				fmt.Fprintln(m.Out, "\nEnter your Snowflake connection details:")
				fmt.Fprintln(m.Out, "(Press Enter to use defaults from dbt profiles)")
				if err := promptDatasource(prompter, ds); err != nil {
					return err
				}
			}
			if ds.Account == "" || ds.User == "" || ds.Password == "" {
				return ErrMissingCredentials
			}
			return m.Workspace.AddDatasource(ds)
		},
	}, m.Confirm, m.Logger)
	if err != nil {
		return outcome, err
	}

	if outcome == ensure.Found {
		fmt.Fprintf(m.Out, "Datasource '%s' exists. Use --force to replace.\n", ds.Name)
		return outcome, nil
	}

	fmt.Fprintln(m.Out, "\nSUCCESS: Snowflake datasource created!")
	fmt.Fprintf(m.Out, "Name: %s\n", ds.Name)
	fmt.Fprintf(m.Out, "Database: %s\n", ds.Database)
	utils.PrintNextSteps(m.Out,
		"Create expectation suite: claims-ops suite create-marts",
		"Create checkpoint: claims-ops checkpoint create",
		"Run validation: claims-ops checkpoint run",
	)
	return outcome, nil
}
