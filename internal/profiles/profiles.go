package profiles

import (
	"errors"
	"fmt"
	"os"

	"github.com/vitebski/claims-ops/pkg/models"
	"gopkg.in/yaml.v3"
)

var (
	// ErrProfileFileNotFound is returned when the profiles file does not exist
	ErrProfileFileNotFound = errors.New("dbt profiles file not found")
	// ErrProfileNotFound is returned when the profile or target is missing from the file
	ErrProfileNotFound = errors.New("dbt profile not found")
)

// Defaults applied to missing profile fields
const (
	DefaultType      = "snowflake"
	DefaultDatabase  = "HEALTHCARE_ANALYTICS"
	DefaultWarehouse = "transforming_wh"
	DefaultRole      = "ACCOUNTADMIN"
)

type profileEntry struct {
	Target  string                            `yaml:"target"`
	Outputs map[string]map[string]interface{} `yaml:"outputs"`
}

// Load reads the dbt profiles file and returns the connection parameters of profile/target
func Load(path, profile, target string) (*models.ConnectionProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrProfileFileNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data, profile, target)
}

// Parse extracts a profile/target from the contents of a profiles file
func Parse(data []byte, profile, target string) (*models.ConnectionProfile, error) {
	var entries map[string]profileEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse dbt profiles: %w", err)
	}

	entry, ok := entries[profile]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, profile)
	}
	if target == "" {
		target = entry.Target
	}
	output, ok := entry.Outputs[target]
	if !ok {
		return nil, fmt.Errorf("%w: %s.outputs.%s", ErrProfileNotFound, profile, target)
	}

	return &models.ConnectionProfile{
		Type:      stringField(output, "type", DefaultType),
		Account:   stringField(output, "account", ""),
		User:      stringField(output, "user", ""),
		Password:  stringField(output, "password", ""),
		Database:  stringField(output, "database", DefaultDatabase),
		Warehouse: stringField(output, "warehouse", DefaultWarehouse),
		Role:      stringField(output, "role", DefaultRole),
		Schema:    stringField(output, "schema", ""),
		Host:      stringField(output, "host", ""),
		Port:      stringField(output, "port", ""),
	}, nil
}

// stringField reads a scalar field, falling back to def when absent or empty
func stringField(m map[string]interface{}, key, def string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	s := fmt.Sprintf("%v", v)
	if s == "" {
		return def
	}
	return s
}

// Validate checks that the fields required to connect are present
func Validate(p *models.ConnectionProfile) error {
	var missing []string
	if p.Type == DefaultType && p.Account == "" {
		missing = append(missing, "account")
	}
	if p.Type != DefaultType && p.Host == "" {
		missing = append(missing, "host")
	}
	if p.User == "" {
		missing = append(missing, "user")
	}
	if p.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("connection profile is missing required fields: %v", missing)
	}
	return nil
}
