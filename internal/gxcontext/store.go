package gxcontext

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"github.com/vitebski/claims-ops/pkg/models"
)

var nameRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)

func checkName(kind, name string) error {
	if !nameRegex.MatchString(name) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid %s name %q", kind, name)
	}
	return nil
}

func suitePath(name string) string {
	return path.Join(ExpectDir, name+".json")
}

func checkpointPath(name string) string {
	return path.Join(CheckpointDir, name+".yml")
}

func (c *Context) readJSON(rel string, out interface{}) error {
	data, err := afero.ReadFile(c.Fs, c.path(rel))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return fmt.Errorf("read %s: %w", rel, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", rel, err)
	}
	return nil
}

func (c *Context) writeJSON(rel string, in interface{}) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", rel, err)
	}
	return c.writeFile(rel, append(data, '\n'), 0o644)
}

// GetSuite loads an expectation suite by name
func (c *Context) GetSuite(name string) (*models.ExpectationSuite, error) {
	if err := checkName("suite", name); err != nil {
		return nil, err
	}
	var suite models.ExpectationSuite
	if err := c.readJSON(suitePath(name), &suite); err != nil {
		return nil, err
	}
	return &suite, nil
}

// SaveSuite creates or overwrites a suite
func (c *Context) SaveSuite(suite *models.ExpectationSuite) error {
	if err := checkName("suite", suite.Name); err != nil {
		return err
	}
	if suite.Expectations == nil {
		suite.Expectations = []models.Expectation{}
	}
	return c.writeJSON(suitePath(suite.Name), suite)
}

// DeleteSuite removes a suite
func (c *Context) DeleteSuite(name string) error {
	if err := checkName("suite", name); err != nil {
		return err
	}
	p := c.path(suitePath(name))
	if ok, _ := afero.Exists(c.Fs, p); !ok {
		return fmt.Errorf("%w: suite %q", ErrNotFound, name)
	}
	return c.Fs.Remove(p)
}

// ListSuites returns the names of all stored suites in sorted order
func (c *Context) ListSuites() ([]string, error) {
	entries, err := afero.ReadDir(c.Fs, c.path(ExpectDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list suites: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// GetCheckpoint loads a checkpoint config by name
func (c *Context) GetCheckpoint(name string) (*models.CheckpointConfig, error) {
	if err := checkName("checkpoint", name); err != nil {
		return nil, err
	}
	var cp models.CheckpointConfig
	if err := c.readYAML(checkpointPath(name), &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// SaveCheckpoint creates or overwrites a checkpoint config
func (c *Context) SaveCheckpoint(cp *models.CheckpointConfig) error {
	if err := checkName("checkpoint", cp.Name); err != nil {
		return err
	}
	return c.writeYAML(checkpointPath(cp.Name), cp, 0o644)
}

// DeleteCheckpoint removes a checkpoint config
func (c *Context) DeleteCheckpoint(name string) error {
	if err := checkName("checkpoint", name); err != nil {
		return err
	}
	p := c.path(checkpointPath(name))
	if ok, _ := afero.Exists(c.Fs, p); !ok {
		return fmt.Errorf("%w: checkpoint %q", ErrNotFound, name)
	}
	return c.Fs.Remove(p)
}

// StoreValidationResult persists a validation result and returns its path
func (c *Context) StoreValidationResult(result *models.ValidationResult) (string, error) {
	if err := checkName("suite", result.SuiteName); err != nil {
		return "", err
	}
	if err := checkName("run", result.RunID); err != nil {
		return "", err
	}
	rel := path.Join(ValidationDir, result.SuiteName, result.RunID+".json")
	if err := c.writeJSON(rel, result); err != nil {
		return "", err
	}
	return c.path(rel), nil
}

// ListValidationResults returns stored results for a suite, oldest first
func (c *Context) ListValidationResults(suiteName string) ([]*models.ValidationResult, error) {
	if err := checkName("suite", suiteName); err != nil {
		return nil, err
	}
	dir := path.Join(ValidationDir, suiteName)
	entries, err := afero.ReadDir(c.Fs, c.path(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list validations: %w", err)
	}
	var results []*models.ValidationResult
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var r models.ValidationResult
		if err := c.readJSON(path.Join(dir, e.Name()), &r); err != nil {
			return nil, err
		}
		results = append(results, &r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RunTime.Before(results[j].RunTime)
	})
	return results, nil
}

// LatestValidationResult returns the most recent result for a suite
func (c *Context) LatestValidationResult(suiteName string) (*models.ValidationResult, error) {
	results, err := c.ListValidationResults(suiteName)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: validation results for %q", ErrNotFound, suiteName)
	}
	return results[len(results)-1], nil
}

// WriteScorecard overwrites the latest scorecard and appends it to the history file
func (c *Context) WriteScorecard(card *models.Scorecard) (string, error) {
	if err := c.writeJSON(ScorecardFile, card); err != nil {
		return "", err
	}

	line, err := json.Marshal(card)
	if err != nil {
		return "", fmt.Errorf("encode scorecard history: %w", err)
	}
	f, err := c.Fs.OpenFile(c.path(HistoryFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open scorecard history: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		return "", fmt.Errorf("append scorecard history: %w", err)
	}
	return c.ScorecardPath(), nil
}

// ScorecardHistory returns every scorecard appended so far, oldest first
func (c *Context) ScorecardHistory() ([]*models.Scorecard, error) {
	data, err := afero.ReadFile(c.Fs, c.path(HistoryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read scorecard history: %w", err)
	}
	var cards []*models.Scorecard
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var card models.Scorecard
		if err := json.Unmarshal(line, &card); err != nil {
			return nil, fmt.Errorf("parse scorecard history: %w", err)
		}
		cards = append(cards, &card)
	}
	return cards, scanner.Err()
}

// WriteDataDocs writes the data docs index page
func (c *Context) WriteDataDocs(html []byte) (string, error) {
	if err := c.writeFile(DataDocsDir+"/index.html", html, 0o644); err != nil {
		return "", err
	}
	return c.DataDocsPath(), nil
}
