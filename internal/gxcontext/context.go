// Package gxcontext manages the on-disk validation workspace: datasources,
// expectation suites, checkpoints, validation results and data docs.
package gxcontext

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNotInitialized is returned when neither gx/ nor great_expectations/ exists
	ErrNotInitialized = errors.New("validation workspace not initialized")
	// ErrNotFound is returned when a named resource does not exist
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned when creating a resource that already exists
	ErrAlreadyExists = errors.New("resource already exists")
)

// Directory names and files inside the workspace
const (
	DirName       = "gx"
	LegacyDirName = "great_expectations"
	ConfigFile    = "great_expectations.yml"
	VariablesFile = "uncommitted/config_variables.yml"
	ExpectDir     = "expectations"
	CheckpointDir = "checkpoints"
	ValidationDir = "uncommitted/validations"
	DataDocsDir   = "uncommitted/data_docs/local_site"
	ScorecardFile = "uncommitted/scorecard.json"
	HistoryFile   = "uncommitted/scorecard_history.jsonl"
	configVersion = 4
)

// Context is an opened validation workspace
type Context struct {
	Fs   afero.Fs
	Root string
}

// Locate returns the existing workspace directory under projectDir
func Locate(fs afero.Fs, projectDir string) (string, error) {
	for _, name := range []string{DirName, LegacyDirName} {
		dir := filepath.Join(projectDir, name)
		if ok, _ := afero.DirExists(fs, dir); ok {
			return dir, nil
		}
	}
	return "", fmt.Errorf("%w: run 'claims-ops init' first", ErrNotInitialized)
}

// Exists reports whether a workspace has been initialized under projectDir
func Exists(fs afero.Fs, projectDir string) bool {
	_, err := Locate(fs, projectDir)
	return err == nil
}

// Find opens the existing workspace under projectDir
func Find(fs afero.Fs, projectDir string) (*Context, error) {
	root, err := Locate(fs, projectDir)
	if err != nil {
		return nil, err
	}
	return &Context{Fs: fs, Root: root}, nil
}

// Init creates the workspace layout. created is false when a workspace already existed.
func Init(fs afero.Fs, projectDir string) (ctx *Context, created bool, err error) {
	if root, err := Locate(fs, projectDir); err == nil {
		return &Context{Fs: fs, Root: root}, false, nil
	}

	ctx = &Context{Fs: fs, Root: filepath.Join(projectDir, DirName)}
	for _, dir := range []string{ExpectDir, CheckpointDir, ValidationDir, DataDocsDir} {
		if err := fs.MkdirAll(ctx.path(dir), 0o755); err != nil {
			return nil, false, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	if err := ctx.saveConfig(&projectConfig{ConfigVersion: configVersion, Datasources: map[string]*datasourceEntry{}}); err != nil {
		return nil, false, err
	}
	if err := ctx.writeYAML(VariablesFile, map[string]string{}, 0o600); err != nil {
		return nil, false, err
	}
	if err := afero.WriteFile(fs, ctx.path(".gitignore"), []byte("uncommitted/\n"), 0o644); err != nil {
		return nil, false, fmt.Errorf("write .gitignore: %w", err)
	}

	return ctx, true, nil
}

func (c *Context) path(rel string) string {
	return filepath.Join(c.Root, filepath.FromSlash(rel))
}

func (c *Context) readYAML(rel string, out interface{}) error {
	data, err := afero.ReadFile(c.Fs, c.path(rel))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return fmt.Errorf("read %s: %w", rel, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", rel, err)
	}
	return nil
}

func (c *Context) writeYAML(rel string, in interface{}, perm os.FileMode) error {
	data, err := yaml.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", rel, err)
	}
	return c.writeFile(rel, data, perm)
}

func (c *Context) writeFile(rel string, data []byte, perm os.FileMode) error {
	p := c.path(rel)
	if err := c.Fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", rel, err)
	}
	if err := afero.WriteFile(c.Fs, p, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

// DataDocsPath returns the index page of the local data docs site
func (c *Context) DataDocsPath() string {
	return c.path(DataDocsDir + "/index.html")
}

// ScorecardPath returns the location of the latest scorecard
func (c *Context) ScorecardPath() string {
	return c.path(ScorecardFile)
}
