package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/vitebski/claims-ops/internal/config"
	"github.com/vitebski/claims-ops/internal/connector"
	"github.com/vitebski/claims-ops/internal/ensure"
	"github.com/vitebski/claims-ops/internal/gxcontext"
	"github.com/vitebski/claims-ops/internal/profiles"
	"github.com/vitebski/claims-ops/internal/suites"
	"github.com/vitebski/claims-ops/internal/validation"
	"github.com/vitebski/claims-ops/pkg/models"
)

// app carries what every command needs once flags and environment are resolved
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	out    io.Writer
	fs     afero.Fs
}

func (a *app) filesystem() afero.Fs {
	if a.fs == nil {
		a.fs = afero.NewOsFs()
	}
	return a.fs
}

// workspace opens the validation workspace, printing setup guidance when it is missing
func (a *app) workspace() (*gxcontext.Context, error) {
	ws, err := gxcontext.Find(a.filesystem(), a.cfg.ProjectDir)
	if errors.Is(err, gxcontext.ErrNotInitialized) {
		fmt.Fprintln(a.out, "ERROR: Validation workspace not found. Run: claims-ops init")
	}
	return ws, err
}

// profile loads the dbt connection profile
func (a *app) profile() (*models.ConnectionProfile, error) {
	p, err := profiles.Load(a.cfg.ProfilesPath, a.cfg.Profile, a.cfg.Target)
	if errors.Is(err, profiles.ErrProfileFileNotFound) {
		fmt.Fprintln(a.out, "ERROR: dbt profiles not found. Set DBT_PROFILES_PATH or pass --profiles")
	}
	if err != nil {
		return nil, err
	}
	a.logger.Debugf("Loaded dbt profile %s.%s from %s", a.cfg.Profile, a.cfg.Target, a.cfg.ProfilesPath)
	return p, nil
}

// warehouseFromWorkspace connects with the credentials of the configured datasource
func (a *app) warehouseFromWorkspace(ws *gxcontext.Context) (*connector.WarehouseConnector, error) {
	p, err := ws.ResolveCredentials(config.DatasourceName)
	if err != nil {
		if errors.Is(err, gxcontext.ErrNotFound) {
			fmt.Fprintln(a.out, "ERROR: Snowflake datasource not configured.")
			fmt.Fprintln(a.out, "Run: claims-ops datasource configure first")
		}
		return nil, err
	}
	return connector.NewWarehouseConnector(p, a.logger), nil
}

// warehouseFromProfile connects with the dbt profile credentials
func (a *app) warehouseFromProfile() (*connector.WarehouseConnector, error) {
	p, err := a.profile()
	if err != nil {
		return nil, err
	}
	if err := profiles.Validate(p); err != nil {
		return nil, err
	}
	return connector.NewWarehouseConnector(p, a.logger), nil
}

// suiteManager opens the workspace and a Manager that probes the warehouse when credentials are available
func (a *app) suiteManager(force bool) (*suites.Manager, func(), error) {
	ws, err := a.workspace()
	if err != nil {
		return nil, nil, err
	}
	m := suites.NewManager(ws, ensure.ForTerminal(force), a.out, a.logger)
	cleanup := func() {}
	if p, err := ws.ResolveCredentials(config.DatasourceName); err == nil {
		wc := connector.NewWarehouseConnector(p, a.logger)
		m.Warehouse = wc
		cleanup = wc.Disconnect
	}
	return m, cleanup, nil
}

// validationRunner opens the workspace and a Runner connected to the datasource
func (a *app) validationRunner() (*validation.Runner, func(), error) {
	ws, err := a.workspace()
	if err != nil {
		return nil, nil, err
	}
	wc, err := a.warehouseFromWorkspace(ws)
	if err != nil {
		return nil, nil, err
	}
	return validation.NewRunner(ws, wc, a.logger), wc.Disconnect, nil
}
