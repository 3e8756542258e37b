package gxcontext

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/vitebski/claims-ops/pkg/models"
)

type datasourceEntry struct {
	Type      string                        `yaml:"type"`
	Account   string                        `yaml:"account,omitempty"`
	User      string                        `yaml:"user,omitempty"`
	Password  string                        `yaml:"password,omitempty"`
	Database  string                        `yaml:"database,omitempty"`
	Warehouse string                        `yaml:"warehouse,omitempty"`
	Role      string                        `yaml:"role,omitempty"`
	Host      string                        `yaml:"host,omitempty"`
	Port      string                        `yaml:"port,omitempty"`
	Assets    map[string]*models.TableAsset `yaml:"assets,omitempty"`
}

type projectConfig struct {
	ConfigVersion int                         `yaml:"config_version"`
	Datasources   map[string]*datasourceEntry `yaml:"datasources"`
}

func (c *Context) loadConfig() (*projectConfig, error) {
	var cfg projectConfig
	if err := c.readYAML(ConfigFile, &cfg); err != nil {
		return nil, err
	}
	if cfg.Datasources == nil {
		cfg.Datasources = map[string]*datasourceEntry{}
	}
	return &cfg, nil
}

func (c *Context) saveConfig(cfg *projectConfig) error {
	return c.writeYAML(ConfigFile, cfg, 0o644)
}

func passwordVariable(name string) string {
	return name + "_password"
}

// ListDatasources returns registered datasource names in sorted order
func (c *Context) ListDatasources() ([]string, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cfg.Datasources))
	for name := range cfg.Datasources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// GetDatasource returns a registered datasource. Secrets stay as ${var} references.
func (c *Context) GetDatasource(name string) (*models.DatasourceConfig, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	entry, ok := cfg.Datasources[name]
	if !ok {
		return nil, fmt.Errorf("%w: datasource %q", ErrNotFound, name)
	}
	ds := &models.DatasourceConfig{
		Name:      name,
		Type:      entry.Type,
		Account:   entry.Account,
		User:      entry.User,
		Password:  entry.Password,
		Database:  entry.Database,
		Warehouse: entry.Warehouse,
		Role:      entry.Role,
		Host:      entry.Host,
		Port:      entry.Port,
		Assets:    entry.Assets,
	}
	if ds.Assets == nil {
		ds.Assets = map[string]*models.TableAsset{}
	}
	return ds, nil
}

// AddDatasource registers a datasource. The password is moved into
// uncommitted/config_variables.yml and referenced from the main config.
func (c *Context) AddDatasource(ds *models.DatasourceConfig) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if _, ok := cfg.Datasources[ds.Name]; ok {
		return fmt.Errorf("%w: datasource %q", ErrAlreadyExists, ds.Name)
	}

	entry := &datasourceEntry{
		Type:      ds.Type,
		Account:   ds.Account,
		User:      ds.User,
		Database:  ds.Database,
		Warehouse: ds.Warehouse,
		Role:      ds.Role,
		Host:      ds.Host,
		Port:      ds.Port,
		Assets:    ds.Assets,
	}
	if ds.Password != "" {
		variable := passwordVariable(ds.Name)
		if err := c.setVariable(variable, ds.Password); err != nil {
			return err
		}
		entry.Password = "${" + variable + "}"
	}

	cfg.Datasources[ds.Name] = entry
	return c.saveConfig(cfg)
}

// DeleteDatasource removes a datasource and its stored secret
func (c *Context) DeleteDatasource(name string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if _, ok := cfg.Datasources[name]; !ok {
		return fmt.Errorf("%w: datasource %q", ErrNotFound, name)
	}
	delete(cfg.Datasources, name)
	if err := c.saveConfig(cfg); err != nil {
		return err
	}
	return c.deleteVariable(passwordVariable(name))
}

// ResolveCredentials returns the datasource as a connection profile with ${var} references substituted
func (c *Context) ResolveCredentials(name string) (*models.ConnectionProfile, error) {
	ds, err := c.GetDatasource(name)
	if err != nil {
		return nil, err
	}
	vars, err := c.loadVariables()
	if err != nil {
		return nil, err
	}
	expand := func(s string) string {
		return os.Expand(s, func(key string) string {
			if v, ok := vars[key]; ok {
				return v
			}
			return os.Getenv(key)
		})
	}
	return &models.ConnectionProfile{
		Type:      ds.Type,
		Account:   expand(ds.Account),
		User:      expand(ds.User),
		Password:  expand(ds.Password),
		Database:  expand(ds.Database),
		Warehouse: expand(ds.Warehouse),
		Role:      expand(ds.Role),
		Host:      expand(ds.Host),
		Port:      expand(ds.Port),
	}, nil
}

// GetAsset returns a table asset registered on a datasource
func (c *Context) GetAsset(datasource, asset string) (*models.TableAsset, error) {
	ds, err := c.GetDatasource(datasource)
	if err != nil {
		return nil, err
	}
	a, ok := ds.Assets[asset]
	if !ok {
		return nil, fmt.Errorf("%w: asset %q on datasource %q", ErrNotFound, asset, datasource)
	}
	return a, nil
}

// AddTableAsset registers a table asset on a datasource
func (c *Context) AddTableAsset(datasource string, asset *models.TableAsset) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	entry, ok := cfg.Datasources[datasource]
	if !ok {
		return fmt.Errorf("%w: datasource %q", ErrNotFound, datasource)
	}
	if entry.Assets == nil {
		entry.Assets = map[string]*models.TableAsset{}
	}
	if _, ok := entry.Assets[asset.Name]; ok {
		return fmt.Errorf("%w: asset %q", ErrAlreadyExists, asset.Name)
	}
	if asset.Type == "" {
		asset.Type = "table"
	}
	entry.Assets[asset.Name] = asset
	return c.saveConfig(cfg)
}

func (c *Context) loadVariables() (map[string]string, error) {
	vars := map[string]string{}
	if err := c.readYAML(VariablesFile, &vars); err != nil {
		if errors.Is(err, ErrNotFound) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	if vars == nil {
		vars = map[string]string{}
	}
	return vars, nil
}

func (c *Context) setVariable(key, value string) error {
	vars, err := c.loadVariables()
	if err != nil {
		return err
	}
	vars[key] = value
	return c.writeYAML(VariablesFile, vars, 0o600)
}

func (c *Context) deleteVariable(key string) error {
	vars, err := c.loadVariables()
	if err != nil {
		return err
	}
	if _, ok := vars[key]; !ok {
		return nil
	}
	delete(vars, key)
	return c.writeYAML(VariablesFile, vars, 0o600)
}
