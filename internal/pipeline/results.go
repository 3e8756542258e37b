package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// TestSummary counts dbt test statuses from target/run_results.json
type TestSummary struct {
	Passed int
	Failed int
	Warned int
}

type runResults struct {
	Results []struct {
		UniqueID string `json:"unique_id"`
		Status   string `json:"status"`
	} `json:"results"`
}

// LoadTestSummary reads dbt's run_results.json. A missing file yields an empty summary.
func LoadTestSummary(fs afero.Fs, path string) (TestSummary, error) {
	var summary TestSummary

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return summary, nil
		}
		return summary, fmt.Errorf("read %s: %w", path, err)
	}

	var rr runResults
	if err := json.Unmarshal(data, &rr); err != nil {
		return summary, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, r := range rr.Results {
		switch r.Status {
		case "pass":
			summary.Passed++
		case "fail":
			summary.Failed++
		case "warn":
			summary.Warned++
		}
	}
	return summary, nil
}
