package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/vitebski/claims-ops/internal/gxcontext"
	"github.com/vitebski/claims-ops/internal/profiles"
)

func missingProfilesArgs(t *testing.T, args ...string) []string {
	t.Helper()
	dir := t.TempDir()
	base := []string{
		"--log-level", "fatal",
		"--env-file", filepath.Join(dir, ".env"),
		"--profiles", filepath.Join(dir, "missing", "profiles.yml"),
	}
	return append(base, args...)
}

func TestInvestigateMissingProfilesExitsOne(t *testing.T) {
	var out, stderr bytes.Buffer
	a := &app{out: &out, fs: afero.NewMemMapFs()}

	code := run(a, missingProfilesArgs(t, "investigate", "nulls"), &stderr)
	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "dbt profiles file not found") {
		t.Errorf("Expected profiles error on stderr, got %q", stderr.String())
	}
	if !strings.Contains(out.String(), "DBT_PROFILES_PATH") {
		t.Errorf("Expected profiles guidance, got %q", out.String())
	}
}

func TestInvestigateMissingProfilesReturnsSentinel(t *testing.T) {
	var out bytes.Buffer
	a := &app{out: &out, fs: afero.NewMemMapFs()}

	cmd := newRootCommand(a)
	cmd.SetArgs(missingProfilesArgs(t, "investigate", "source-hospitals"))
	err := cmd.Execute()
	if !errors.Is(err, profiles.ErrProfileFileNotFound) {
		t.Errorf("Expected ErrProfileFileNotFound, got %v", err)
	}
}

func TestDatasourceConfigureMissingProfilesExitsOne(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, _, err := gxcontext.Init(fs, "/project"); err != nil {
		t.Fatal(err)
	}

	var out, stderr bytes.Buffer
	a := &app{out: &out, fs: fs}
	code := run(a, missingProfilesArgs(t, "-C", "/project", "datasource", "configure"), &stderr)
	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	ws, err := gxcontext.Find(fs, "/project")
	if err != nil {
		t.Fatal(err)
	}
	if names, _ := ws.ListDatasources(); len(names) != 0 {
		t.Errorf("Expected no datasource to be created, got %v", names)
	}
}

func TestNotifyRequiresMessage(t *testing.T) {
	var out, stderr bytes.Buffer
	a := &app{out: &out, fs: afero.NewMemMapFs()}

	if code := run(a, missingProfilesArgs(t, "notify"), &stderr); code != 1 {
		t.Errorf("Expected exit code 1 without a message, got %d", code)
	}
}
