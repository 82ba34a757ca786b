// Package models defines the domain models for the storage platform MCP server.
package models

// BackendKind identifies the SQL warehouse backend a project workspace runs on.
type BackendKind string

const (
	BackendSnowflake BackendKind = "snowflake"
	BackendBigQuery  BackendKind = "bigquery"
)

// JobStatus represents the lifecycle state of a queue job.
type JobStatus string

const (
	JobStatusCreated    JobStatus = "created"
	JobStatusWaiting    JobStatus = "waiting"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSuccess    JobStatus = "success"
	JobStatusError      JobStatus = "error"
	JobStatusTerminated JobStatus = "terminated"
)

// Terminal reports whether the status is final. A terminated job cannot be
// resumed; a new job has to be submitted.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSuccess, JobStatusError, JobStatusTerminated:
		return true
	}
	return false
}

// Bucket represents a storage bucket.
type Bucket struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	DisplayName   string `json:"displayName,omitempty"`
	Stage         string `json:"stage,omitempty"`
	Description   string `json:"description,omitempty"`
	Created       string `json:"created,omitempty"`
	DataSizeBytes int64  `json:"dataSizeBytes,omitempty"`
	TablesCount   int    `json:"tablesCount,omitempty"`
}

// Table represents a storage table. Columns are the plain column names as
// reported by the storage service; warehouse-specific quoting is applied by
// the workspace layer.
type Table struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	BucketID      string   `json:"bucketId,omitempty"`
	Description   string   `json:"description,omitempty"`
	PrimaryKey    []string `json:"primaryKey,omitempty"`
	Created       string   `json:"created,omitempty"`
	RowsCount     int64    `json:"rowsCount,omitempty"`
	DataSizeBytes int64    `json:"dataSizeBytes,omitempty"`
	Columns       []string `json:"columns,omitempty"`
}

// TableColumn pairs a plain column name with its dialect-quoted identifier.
type TableColumn struct {
	Name       string `json:"name"`
	QuotedName string `json:"quotedName"`
}

// TableDetail is a Table enriched with workspace identifiers for the active
// SQL dialect.
type TableDetail struct {
	Table
	ColumnInfo         []TableColumn `json:"columnInfo,omitempty"`
	FullyQualifiedName string        `json:"fullyQualifiedName,omitempty"`
}

// DescriptionUpdate is the confirmed result of a description write.
type DescriptionUpdate struct {
	Success     bool   `json:"success"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
}

// Component represents a platform component (extractor, writer, application
// or transformation).
type Component struct {
	ID          string `json:"componentId"`
	Name        string `json:"componentName"`
	Type        string `json:"componentType"`
	Description string `json:"componentDescription,omitempty"`
}

// Configuration represents a stored component configuration.
type Configuration struct {
	ID          string         `json:"configurationId"`
	Name        string         `json:"configurationName"`
	Description string         `json:"configurationDescription,omitempty"`
	ComponentID string         `json:"componentId,omitempty"`
	Version     int            `json:"version,omitempty"`
	IsDisabled  bool           `json:"isDisabled,omitempty"`
	IsDeleted   bool           `json:"isDeleted,omitempty"`
	Created     string         `json:"created,omitempty"`
	Content     map[string]any `json:"configuration,omitempty"`
}

// ComponentWithConfigurations groups a component with its configurations, the
// shape returned by the component listing tools.
type ComponentWithConfigurations struct {
	Component      Component       `json:"component"`
	Configurations []Configuration `json:"configurations"`
}

// QueryResult is the normalized tabular shape every workspace query produces.
// Rows are ordered and hold scalar values only; Truncated is set when the row
// cap was hit. RowsCount always equals len(Rows); no count of the remaining
// rows is fetched.
type QueryResult struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowsCount int      `json:"rowsCount"`
	Truncated bool     `json:"truncated"`
}

// JobSummary is the reduced job shape used in listings.
type JobSummary struct {
	ID          string    `json:"id"`
	Status      JobStatus `json:"status"`
	ComponentID string    `json:"component,omitempty"`
	ConfigID    string    `json:"config,omitempty"`
	IsFinished  bool      `json:"isFinished"`
	CreatedTime string    `json:"createdTime,omitempty"`
	StartTime   string    `json:"startTime,omitempty"`
	EndTime     string    `json:"endTime,omitempty"`
}

// JobDetail carries the full job record as reported by the queue service.
type JobDetail struct {
	JobSummary
	URL             string         `json:"url,omitempty"`
	RunID           string         `json:"runId,omitempty"`
	DurationSeconds float64        `json:"durationSeconds,omitempty"`
	Result          map[string]any `json:"result,omitempty"`
	Metrics         map[string]any `json:"metrics,omitempty"`
}

// DocsAnswer is an answer to a documentation query.
type DocsAnswer struct {
	Text       string   `json:"text"`
	SourceURLs []string `json:"sourceUrls"`
}

// TransformationSpec is an in-memory transformation configuration payload. It
// is built once, submitted once and then discarded; the remote configuration
// is the source of truth afterwards.
type TransformationSpec struct {
	Name          string               `json:"name"`
	Description   string               `json:"description"`
	Dialect       BackendKind          `json:"dialect"`
	ComponentID   string               `json:"componentId"`
	Configuration TransformationConfig `json:"configuration"`
}

// TransformationConfig is the configuration body of a SQL transformation.
type TransformationConfig struct {
	Parameters TransformationParameters `json:"parameters"`
	Storage    TransformationStorage    `json:"storage"`
}

// TransformationParameters holds the ordered code blocks of a transformation.
type TransformationParameters struct {
	Blocks []TransformationBlock `json:"blocks"`
}

// TransformationBlock is a named group of code scripts.
type TransformationBlock struct {
	Name  string               `json:"name"`
	Codes []TransformationCode `json:"codes"`
}

// TransformationCode is a named, ordered list of SQL statements.
type TransformationCode struct {
	Name   string   `json:"name"`
	Script []string `json:"script"`
}

// TransformationStorage declares the input and output table mappings.
type TransformationStorage struct {
	Input  TransformationTables `json:"input"`
	Output TransformationTables `json:"output"`
}

// TransformationTables is a list of table mappings.
type TransformationTables struct {
	Tables []TableMapping `json:"tables"`
}

// TableMapping maps a workspace table to a storage destination or vice versa.
type TableMapping struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}
