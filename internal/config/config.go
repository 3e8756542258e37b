package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Defaults for the daily claims pipeline
const (
	DefaultBucket    = "healthcare-analytics-datalake"
	DefaultRegion    = "us-east-1"
	DefaultProfile   = "healthcare_analytics"
	DefaultTarget    = "dev"
	DatasourceName   = "snowflake_datasource"
	CheckpointName   = "marts_checkpoint"
	MartsTable       = "fct_inpatient_charges"
	MartsSchema      = "raw_marts"
	MartsSuitePrefix = "marts."
)

// Config holds the settings shared by all commands
type Config struct {
	ProjectDir      string
	ProfilesPath    string
	Profile         string
	Target          string
	S3Bucket        string
	AWSRegion       string
	SlackWebhookURL string
}

// MartsSuiteName returns the suite name for a marts table
func MartsSuiteName(table string) string {
	return MartsSuitePrefix + table
}

// Load resolves configuration from defaults, then environment variables.
// The returned viper instance lets callers bind command flags on top.
func Load() (*Config, *viper.Viper) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("S3_BUCKET_NAME", DefaultBucket)
	v.SetDefault("AWS_REGION", DefaultRegion)
	v.SetDefault("DBT_PROFILE", DefaultProfile)
	v.SetDefault("DBT_TARGET", DefaultTarget)
	v.SetDefault("DBT_PROFILES_PATH", DefaultProfilesPath())
	v.SetDefault("CLAIMS_PROJECT_DIR", currentDir())
	v.SetDefault("SLACK_WEBHOOK_URL", "")

	return FromViper(v), v
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) *Config {
	return &Config{
		ProjectDir:      v.GetString("CLAIMS_PROJECT_DIR"),
		ProfilesPath:    v.GetString("DBT_PROFILES_PATH"),
		Profile:         v.GetString("DBT_PROFILE"),
		Target:          v.GetString("DBT_TARGET"),
		S3Bucket:        v.GetString("S3_BUCKET_NAME"),
		AWSRegion:       v.GetString("AWS_REGION"),
		SlackWebhookURL: v.GetString("SLACK_WEBHOOK_URL"),
	}
}

// DefaultProfilesPath returns the dbt profiles file under the user's home directory
func DefaultProfilesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".dbt", "profiles.yml")
	}
	return filepath.Join(home, ".dbt", "profiles.yml")
}

// GetEnvOrDefault gets an environment variable or returns a default value
func GetEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func currentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}
