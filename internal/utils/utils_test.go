package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetupLogging(t *testing.T) {
	// Test with default log level
	logger := SetupLogging("")
	if logger == nil {
		t.Error("Expected logger to be created, got nil")
	}

	logger = SetupLogging("debug")
	if logger.Level != logrus.DebugLevel {
		t.Errorf("Expected log level to be debug, got %s", logger.Level)
	}

	logger = SetupLogging("warn")
	if logger.Level != logrus.WarnLevel {
		t.Errorf("Expected log level to be warn, got %s", logger.Level)
	}

	// Test with invalid log level (should default to info)
	logger = SetupLogging("invalid")
	if logger.Level != logrus.InfoLevel {
		t.Errorf("Expected log level to be info for invalid input, got %s", logger.Level)
	}
}

func TestSetupLoggingFromEnvironment(t *testing.T) {
	t.Setenv("CLAIMS_LOG_LEVEL", "error")
	logger := SetupLogging("")
	if logger.Level != logrus.ErrorLevel {
		t.Errorf("Expected log level to be error, got %s", logger.Level)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_ENV_INT", "42")
	value := GetEnvInt("TEST_ENV_INT", 10)
	if value != 42 {
		t.Errorf("Expected value to be 42, got %d", value)
	}

	os.Unsetenv("TEST_ENV_INT")
	value = GetEnvInt("TEST_ENV_INT", 10)
	if value != 10 {
		t.Errorf("Expected value to be 10 (default), got %d", value)
	}

	t.Setenv("TEST_ENV_INT", "not-an-int")
	value = GetEnvInt("TEST_ENV_INT", 10)
	if value != 10 {
		t.Errorf("Expected value to be 10 (default) for invalid input, got %d", value)
	}
}

func TestLoadEnvironmentVariables(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")

	if LoadEnvironmentVariables(envFile, logger) {
		t.Error("Expected false when the env file does not exist")
	}

	if err := os.WriteFile(envFile, []byte("CLAIMS_TEST_LOADED=yes\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("CLAIMS_TEST_LOADED") })

	if !LoadEnvironmentVariables(envFile, logger) {
		t.Error("Expected true when the env file exists")
	}
	if os.Getenv("CLAIMS_TEST_LOADED") != "yes" {
		t.Errorf("Expected CLAIMS_TEST_LOADED to be loaded, got '%s'", os.Getenv("CLAIMS_TEST_LOADED"))
	}
}

func TestPrintNextSteps(t *testing.T) {
	var buf bytes.Buffer
	PrintNextSteps(&buf, "claims-ops checkpoint run")
	if !strings.Contains(buf.String(), "Next step:") {
		t.Errorf("Expected singular heading, got %q", buf.String())
	}

	buf.Reset()
	PrintNextSteps(&buf, "a", "b")
	if !strings.Contains(buf.String(), "  2. b") {
		t.Errorf("Expected numbered steps, got %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if Truncate("abcdef", 3) != "abc" {
		t.Errorf("Expected 'abc', got '%s'", Truncate("abcdef", 3))
	}
	if Truncate("ab", 3) != "ab" {
		t.Errorf("Expected 'ab', got '%s'", Truncate("ab", 3))
	}
}
