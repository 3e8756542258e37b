package models

import "time"

// ConnectionProfile holds warehouse connection parameters read from a dbt profile
type ConnectionProfile struct {
	Type      string
	Account   string
	User      string
	Password  string
	Database  string
	Warehouse string
	Role      string
	Schema    string
	Host      string
	Port      string
}

// Expectation is a single data-quality rule inside a suite
type Expectation struct {
	Type   string                 `json:"type"`
	Kwargs map[string]interface{} `json:"kwargs"`
	Meta   map[string]interface{} `json:"meta,omitempty"`
}

// Column returns the column the expectation applies to, or "" for table-level rules
func (e Expectation) Column() string {
	if e.Kwargs == nil {
		return ""
	}
	if col, ok := e.Kwargs["column"].(string); ok {
		return col
	}
	return ""
}

// ExpectationSuite is a named, ordered collection of rules applied to one table
type ExpectationSuite struct {
	Name         string                 `json:"name"`
	Expectations []Expectation          `json:"expectations"`
	Meta         map[string]interface{} `json:"meta,omitempty"`
}

// TableAsset binds a datasource to one physical table
type TableAsset struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	TableName  string `yaml:"table_name"`
	SchemaName string `yaml:"schema_name"`
}

// DatasourceConfig is a registered warehouse connection
type DatasourceConfig struct {
	Name      string                 `yaml:"name"`
	Type      string                 `yaml:"type"`
	Account   string                 `yaml:"account,omitempty"`
	User      string                 `yaml:"user,omitempty"`
	Password  string                 `yaml:"password,omitempty"`
	Database  string                 `yaml:"database,omitempty"`
	Warehouse string                 `yaml:"warehouse,omitempty"`
	Role      string                 `yaml:"role,omitempty"`
	Host      string                 `yaml:"host,omitempty"`
	Port      string                 `yaml:"port,omitempty"`
	Assets    map[string]*TableAsset `yaml:"assets,omitempty"`
}

// BatchRequest identifies the data an expectation suite is validated against
type BatchRequest struct {
	DatasourceName string `yaml:"datasource_name" json:"datasource_name"`
	DataAssetName  string `yaml:"data_asset_name" json:"data_asset_name"`
}

// CheckpointAction is one post-validation action of a checkpoint
type CheckpointAction struct {
	Name   string            `yaml:"name"`
	Action map[string]string `yaml:"action"`
}

// CheckpointConfig binds a suite to a specific table/connection, runnable by name
type CheckpointConfig struct {
	Name                 string             `yaml:"name"`
	ConfigVersion        float64            `yaml:"config_version"`
	ClassName            string             `yaml:"class_name"`
	RunNameTemplate      string             `yaml:"run_name_template"`
	ExpectationSuiteName string             `yaml:"expectation_suite_name"`
	BatchRequest         BatchRequest       `yaml:"batch_request"`
	ActionList           []CheckpointAction `yaml:"action_list"`
}

// HasAction reports whether the checkpoint runs an action with the given class name
func (c *CheckpointConfig) HasAction(className string) bool {
	for _, a := range c.ActionList {
		if a.Action["class_name"] == className {
			return true
		}
	}
	return false
}

// ExpectationResult is the outcome of one rule in a validation run
type ExpectationResult struct {
	Expectation     Expectation `json:"expectation_config"`
	Success         bool        `json:"success"`
	ObservedValue   interface{} `json:"observed_value,omitempty"`
	ElementCount    *int64      `json:"element_count,omitempty"`
	UnexpectedCount *int64      `json:"unexpected_count,omitempty"`
	ExceptionInfo   string      `json:"exception_info,omitempty"`
}

// ValidationStatistics aggregates pass/fail counts for a run
type ValidationStatistics struct {
	EvaluatedExpectations    int     `json:"evaluated_expectations"`
	SuccessfulExpectations   int     `json:"successful_expectations"`
	UnsuccessfulExpectations int     `json:"unsuccessful_expectations"`
	SuccessPercent           float64 `json:"success_percent"`
}

// ValidationResult is the persisted outcome of one validation run
type ValidationResult struct {
	RunID      string               `json:"run_id"`
	RunTime    time.Time            `json:"run_time"`
	SuiteName  string               `json:"suite_name"`
	Batch      BatchRequest         `json:"batch_request"`
	Table      string               `json:"table"`
	Success    bool                 `json:"success"`
	Statistics ValidationStatistics `json:"statistics"`
	Results    []ExpectationResult  `json:"results"`
}

// FailedExpectation is a failing rule as listed in a scorecard
type FailedExpectation struct {
	ExpectationType string `json:"expectation_type"`
	Column          string `json:"column"`
}

// Scorecard summarises aggregate and per-category pass rates for one validation run
type Scorecard struct {
	Timestamp          string              `json:"timestamp"`
	SuiteName          string              `json:"suite_name"`
	OverallScore       float64             `json:"overall_score"`
	TotalExpectations  int                 `json:"total_expectations"`
	Passed             int                 `json:"passed"`
	Failed             int                 `json:"failed"`
	CategoryScores     map[string]*float64 `json:"category_scores"`
	QualityLevel       string              `json:"quality_level"`
	FailedExpectations []FailedExpectation `json:"failed_expectations"`
}

// ManifestFile is one entry of an upload manifest
type ManifestFile struct {
	S3Key       string  `json:"s3_key"`
	LocalPath   string  `json:"local_path"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	SizeMB      float64 `json:"size_mb"`
	SizeBytes   int64   `json:"size_bytes"`
}

// UploadManifest documents one upload invocation
type UploadManifest struct {
	UploadTimestamp string         `json:"upload_timestamp"`
	Bucket          string         `json:"bucket"`
	Region          string         `json:"region"`
	Files           []ManifestFile `json:"files"`
}
