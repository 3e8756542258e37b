package utils

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// secretVars are masked when environment variables are dumped at debug level
var secretVars = map[string]bool{
	"SLACK_WEBHOOK_URL":     true,
	"AWS_SECRET_ACCESS_KEY": true,
	"AWS_SESSION_TOKEN":     true,
	"SNOWFLAKE_PASSWORD":    true,
}

// debugPrefixes select which environment variables are dumped at debug level
var debugPrefixes = []string{"CLAIMS_", "DBT_", "S3_", "AWS_", "SLACK_", "SNOWFLAKE_"}

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	logger := logrus.New()

	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("CLAIMS_LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	logger.Debugf("Logging configured with level: %s", level)
	return logger
}

// LoadEnvironmentVariables loads environment variables from .env file
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
	}

	loaded := false
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("Error loading %s file: %v", envFile, err)
		} else {
			logger.Debugf("Loaded environment variables from %s", envFile)
			loaded = true
		}
	} else {
		logger.Debugf("No %s file found, using existing environment variables", envFile)
	}

	if logger.Level == logrus.DebugLevel {
		for _, env := range os.Environ() {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) != 2 || !hasAnyPrefix(parts[0], debugPrefixes) {
				continue
			}
			if secretVars[parts[0]] || strings.Contains(parts[0], "PASSWORD") {
				logger.Debugf("%s=********", parts[0])
			} else {
				logger.Debugf("%s=%s", parts[0], parts[1])
			}
		}
	}

	return loaded
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// GetEnvInt gets an integer value from environment variable
func GetEnvInt(varName string, defaultValue int) int {
	value := os.Getenv(varName)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// PrintBanner prints a title framed by separator lines
func PrintBanner(w io.Writer, title string) {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", 60))
}

// PrintSeparator prints a single separator line
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 60))
}

// PrintNextSteps prints a numbered list of follow-up commands
func PrintNextSteps(w io.Writer, steps ...string) {
	if len(steps) == 0 {
		return
	}
	fmt.Fprintln(w)
	if len(steps) == 1 {
		fmt.Fprintln(w, "Next step:")
		fmt.Fprintf(w, "  %s\n", steps[0])
		return
	}
	fmt.Fprintln(w, "Next steps:")
	for i, step := range steps {
		fmt.Fprintf(w, "  %d. %s\n", i+1, step)
	}
}

// Truncate shortens s to at most n runes
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
