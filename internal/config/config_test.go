package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("S3_BUCKET_NAME", "")
	t.Setenv("AWS_REGION", "")

	cfg, _ := Load()
	if cfg.S3Bucket != DefaultBucket {
		t.Errorf("Expected bucket to be '%s', got '%s'", DefaultBucket, cfg.S3Bucket)
	}
	if cfg.AWSRegion != DefaultRegion {
		t.Errorf("Expected region to be '%s', got '%s'", DefaultRegion, cfg.AWSRegion)
	}
	if cfg.Profile != DefaultProfile {
		t.Errorf("Expected profile to be '%s', got '%s'", DefaultProfile, cfg.Profile)
	}
	if !strings.HasSuffix(cfg.ProfilesPath, "profiles.yml") {
		t.Errorf("Expected profiles path to end with profiles.yml, got '%s'", cfg.ProfilesPath)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("S3_BUCKET_NAME", "test-bucket")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.example.com/x")

	cfg, _ := Load()
	if cfg.S3Bucket != "test-bucket" {
		t.Errorf("Expected bucket to be 'test-bucket', got '%s'", cfg.S3Bucket)
	}
	if cfg.AWSRegion != "eu-west-1" {
		t.Errorf("Expected region to be 'eu-west-1', got '%s'", cfg.AWSRegion)
	}
	if cfg.SlackWebhookURL != "https://hooks.example.com/x" {
		t.Errorf("Expected webhook from environment, got '%s'", cfg.SlackWebhookURL)
	}
}

func TestFlagOverride(t *testing.T) {
	_, v := Load()
	v.Set("DBT_TARGET", "prod")
	cfg := FromViper(v)
	if cfg.Target != "prod" {
		t.Errorf("Expected target to be 'prod', got '%s'", cfg.Target)
	}
}

func TestMartsSuiteName(t *testing.T) {
	if MartsSuiteName("dim_hospitals") != "marts.dim_hospitals" {
		t.Errorf("Unexpected suite name: %s", MartsSuiteName("dim_hospitals"))
	}
}
