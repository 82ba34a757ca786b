// Package mcp is the tool dispatch layer. It declares the schema of every
// tool, validates inbound arguments, routes calls to the underlying
// components and maps every component failure into the uniform tool error
// envelope. No error is ever raised past the dispatch boundary.
package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"keboola-mcp/internal/dialect"
	"keboola-mcp/internal/jobs"
	"keboola-mcp/internal/logging"
	"keboola-mcp/internal/toolerr"
	"keboola-mcp/pkg/models"
)

// Storage is the resource metadata surface the tools dispatch to.
// *storage.Client satisfies it.
type Storage interface {
	ListBuckets(ctx context.Context) ([]models.Bucket, error)
	GetBucket(ctx context.Context, bucketID string) (*models.Bucket, error)
	ListTables(ctx context.Context, bucketID string) ([]models.Table, error)
	GetTable(ctx context.Context, tableID string) (*models.Table, error)
	UpdateBucketDescription(ctx context.Context, bucketID, description string) (*models.DescriptionUpdate, error)
	UpdateTableDescription(ctx context.Context, tableID, description string) (*models.DescriptionUpdate, error)
	ListComponents(ctx context.Context, types []string) ([]models.ComponentWithConfigurations, error)
	ListConfigurations(ctx context.Context, componentID string) ([]models.Configuration, error)
	GetComponent(ctx context.Context, componentID string) (*models.Component, error)
	GetConfiguration(ctx context.Context, componentID, configurationID string) (*models.Configuration, error)
}

// QueryExecutor runs validated read-only SQL. *query.Executor satisfies it.
type QueryExecutor interface {
	Execute(ctx context.Context, sql string) (*models.QueryResult, error)
}

// Jobs is the job lifecycle surface. *jobs.Manager satisfies it.
type Jobs interface {
	Submit(ctx context.Context, componentID, configurationID string) (*jobs.Handle, error)
	GetDetail(ctx context.Context, jobID string) (*models.JobDetail, error)
	Search(ctx context.Context, p jobs.SearchParams) ([]models.JobSummary, error)
	AwaitCompletion(ctx context.Context, h *jobs.Handle, maxInterval, maxWait time.Duration) (*jobs.Handle, error)
}

// Docs answers documentation queries. *docs.Client satisfies it.
type Docs interface {
	Question(ctx context.Context, query string) (*models.DocsAnswer, error)
}

// Transformations builds and submits SQL transformation specs.
// *transform.Builder satisfies it.
type Transformations interface {
	Build(name, description string, statements, createdTables []string) (*models.TransformationSpec, error)
	Submit(ctx context.Context, spec *models.TransformationSpec) (*models.Configuration, error)
}

// Deps are the components the dispatch layer routes to.
type Deps struct {
	Logger     *logging.Logger
	Adapter    dialect.Adapter
	Storage    Storage
	Query      QueryExecutor
	Jobs       Jobs
	Docs       Docs
	Transforms Transformations
}

type Server struct {
	mcpServer  *server.MCPServer
	log        *logging.Logger
	adapter    dialect.Adapter
	storage    Storage
	query      QueryExecutor
	jobs       Jobs
	docs       Docs
	transforms Transformations
}

// NewServer creates the MCP server and registers all tools.
func NewServer(deps Deps) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Keboola Storage",
			"1.0.0",
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
		log:        deps.Logger,
		adapter:    deps.Adapter,
		storage:    deps.Storage,
		query:      deps.Query,
		jobs:       deps.Jobs,
		docs:       deps.Docs,
		transforms: deps.Transforms,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"retrieve_buckets",
			mcp.WithDescription("Retrieves information about all buckets in the project"),
		),
		s.handleRetrieveBuckets,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_bucket_detail",
			mcp.WithDescription("Gets detailed information about a specific bucket"),
			mcp.WithString("bucket_id", mcp.Required(), mcp.Description("Unique ID of the bucket")),
		),
		s.handleGetBucketDetail,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"retrieve_bucket_tables",
			mcp.WithDescription("Retrieves all tables in a specific bucket with their basic information"),
			mcp.WithString("bucket_id", mcp.Required(), mcp.Description("Unique ID of the bucket")),
		),
		s.handleRetrieveBucketTables,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_table_detail",
			mcp.WithDescription("Gets detailed information about a table, including its fully qualified name and quoted column identifiers for the current SQL dialect"),
			mcp.WithString("table_id", mcp.Required(), mcp.Description("Unique ID of the table")),
		),
		s.handleGetTableDetail,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"update_bucket_description",
			mcp.WithDescription("Updates the description of a bucket"),
			mcp.WithString("bucket_id", mcp.Required(), mcp.Description("The ID of the bucket to update")),
			mcp.WithString("description", mcp.Required(), mcp.Description("The new description for the bucket")),
		),
		s.handleUpdateBucketDescription,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"update_table_description",
			mcp.WithDescription("Updates the description of a table"),
			mcp.WithString("table_id", mcp.Required(), mcp.Description("The ID of the table to update")),
			mcp.WithString("description", mcp.Required(), mcp.Description("The new description for the table")),
		),
		s.handleUpdateTableDescription,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"query_table",
			mcp.WithDescription("Executes a read-only SQL query against the project workspace. Use fully qualified table names from get_table_detail and quote identifiers for the current dialect"),
			mcp.WithString("sql", mcp.Required(), mcp.Description("SQL SELECT statement to run")),
		),
		s.handleQueryTable,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_sql_dialect",
			mcp.WithDescription("Returns the SQL dialect of the project workspace"),
		),
		s.handleGetSQLDialect,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"retrieve_components",
			mcp.WithDescription("Retrieves components and their configurations, optionally filtered by component types or specific component IDs"),
			mcp.WithArray("component_types", mcp.Description("Component types to filter by (extractor, writer, application, transformation)")),
			mcp.WithArray("component_ids", mcp.Description("Component IDs to retrieve configurations for; takes precedence over component_types")),
		),
		s.handleRetrieveComponents,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"retrieve_transformations",
			mcp.WithDescription("Retrieves transformation configurations, optionally filtered by specific transformation component IDs"),
			mcp.WithArray("transformation_ids", mcp.Description("Transformation component IDs to retrieve configurations for")),
		),
		s.handleRetrieveTransformations,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_component_details",
			mcp.WithDescription("Gets detailed information about a component configuration"),
			mcp.WithString("component_id", mcp.Required(), mcp.Description("Unique identifier of the component")),
			mcp.WithString("configuration_id", mcp.Required(), mcp.Description("Unique identifier of the configuration")),
		),
		s.handleGetComponentDetails,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"create_sql_transformation",
			mcp.WithDescription("Creates an SQL transformation from statements written in the current SQL dialect. Table names listed in created_table_names must be created by the statements"),
			mcp.WithString("name", mcp.Required(), mcp.Description("A short, descriptive name summarizing the purpose of the transformation")),
			mcp.WithString("description", mcp.Required(), mcp.Description("A detailed description of the transformation capturing the user intent")),
			mcp.WithArray("sql_statements", mcp.Required(), mcp.Description("The executable SQL statements, one per item, written in the current SQL dialect")),
			mcp.WithArray("created_table_names", mcp.Description("Names of tables created within the SQL statements, if any")),
		),
		s.handleCreateSQLTransformation,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"retrieve_jobs",
			mcp.WithDescription("Lists recent jobs, newest first, optionally filtered by component, configuration or status"),
			mcp.WithString("component_id", mcp.Description("Only list jobs of this component")),
			mcp.WithString("configuration_id", mcp.Description("Only list jobs of this configuration")),
			mcp.WithArray("status", mcp.Description("Only list jobs in these statuses")),
			mcp.WithNumber("limit", mcp.Description("Number of jobs to list, default 100, max 500")),
			mcp.WithNumber("offset", mcp.Description("Paging offset, default 0")),
		),
		s.handleRetrieveJobs,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_job_detail",
			mcp.WithDescription("Retrieves detailed information about a job, including status, results and metrics"),
			mcp.WithString("job_id", mcp.Required(), mcp.Description("Unique ID of the job")),
		),
		s.handleGetJobDetail,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"start_job",
			mcp.WithDescription("Submits a job for a component configuration. Returns immediately unless wait_seconds is set, in which case the job is polled until it finishes or the wait budget runs out"),
			mcp.WithString("component_id", mcp.Required(), mcp.Description("The ID of the component to run")),
			mcp.WithString("configuration_id", mcp.Required(), mcp.Description("The ID of the configuration to run")),
			mcp.WithNumber("wait_seconds", mcp.Description("How long to wait for the job to finish; 0 returns immediately")),
		),
		s.handleStartJob,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"docs_query",
			mcp.WithDescription("Answers a question using the platform documentation as a source"),
			mcp.WithString("query", mcp.Required(), mcp.Description("Natural language query to search for in the documentation")),
		),
		s.handleDocsQuery,
	)
}

// toolJSON serializes a successful result into the tool response.
func (s *Server) toolJSON(v any) *mcp.CallToolResult {
	encoded, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(toolerr.New(toolerr.RemoteServiceError,
			"failed to encode tool result: %s", err.Error()).Error())
	}
	return mcp.NewToolResultText(string(encoded))
}

// toolError maps a component failure to the uniform error envelope. Errors
// without a kind are reported as remote service failures; nothing ever
// propagates past the dispatch boundary.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.log.Error("tool failed", "tool", tool, "error", err)
	if _, ok := toolerr.KindOf(err); ok {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(toolerr.Wrap(toolerr.RemoteServiceError, err, "tool %s failed", tool).Error())
}

// MountHTTPHandlers mounts the SSE transport and a health probe on the mux.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
}
