package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"keboola-mcp/internal/jobs"
	"keboola-mcp/pkg/models"
)

// awaitPollCap bounds the poll interval while waiting for a job.
const awaitPollCap = 8 * time.Second

var componentTypes = map[string]bool{
	"extractor":      true,
	"writer":         true,
	"application":    true,
	"transformation": true,
}

func (s *Server) handleRetrieveBuckets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	buckets, err := s.storage.ListBuckets(ctx)
	if err != nil {
		return s.toolError("retrieve_buckets", err), nil
	}
	return s.toolJSON(buckets), nil
}

func (s *Server) handleGetBucketDetail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := newArgsReader(request)
	if err != nil {
		return s.toolError("get_bucket_detail", err), nil
	}
	bucketID := r.requiredString("bucket_id")
	if err := r.err(); err != nil {
		return s.toolError("get_bucket_detail", err), nil
	}

	bucket, err := s.storage.GetBucket(ctx, bucketID)
	if err != nil {
		return s.toolError("get_bucket_detail", err), nil
	}
	return s.toolJSON(bucket), nil
}

func (s *Server) handleRetrieveBucketTables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := newArgsReader(request)
	if err != nil {
		return s.toolError("retrieve_bucket_tables", err), nil
	}
	bucketID := r.requiredString("bucket_id")
	if err := r.err(); err != nil {
		return s.toolError("retrieve_bucket_tables", err), nil
	}

	tables, err := s.storage.ListTables(ctx, bucketID)
	if err != nil {
		return s.toolError("retrieve_bucket_tables", err), nil
	}
	return s.toolJSON(tables), nil
}

func (s *Server) handleGetTableDetail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := newArgsReader(request)
	if err != nil {
		return s.toolError("get_table_detail", err), nil
	}
	tableID := r.requiredString("table_id")
	if err := r.err(); err != nil {
		return s.toolError("get_table_detail", err), nil
	}

	table, err := s.storage.GetTable(ctx, tableID)
	if err != nil {
		return s.toolError("get_table_detail", err), nil
	}

	detail := models.TableDetail{
		Table:              *table,
		FullyQualifiedName: s.adapter.TableFQN(table.Name),
	}
	detail.ColumnInfo = make([]models.TableColumn, len(table.Columns))
	for i, col := range table.Columns {
		detail.ColumnInfo[i] = models.TableColumn{
			Name:       col,
			QuotedName: s.adapter.QuoteIdentifier(col),
		}
	}
	return s.toolJSON(detail), nil
}

func (s *Server) handleUpdateBucketDescription(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := newArgsReader(request)
	if err != nil {
		return s.toolError("update_bucket_description", err), nil
	}
	bucketID := r.requiredString("bucket_id")
	description := r.requiredString("description")
	if err := r.err(); err != nil {
		return s.toolError("update_bucket_description", err), nil
	}

	update, err := s.storage.UpdateBucketDescription(ctx, bucketID, description)
	if err != nil {
		return s.toolError("update_bucket_description", err), nil
	}
	return s.toolJSON(update), nil
}

func (s *Server) handleUpdateTableDescription(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := newArgsReader(request)
	if err != nil {
		return s.toolError("update_table_description", err), nil
	}
	tableID := r.requiredString("table_id")
	description := r.requiredString("description")
	if err := r.err(); err != nil {
		return s.toolError("update_table_description", err), nil
	}

	update, err := s.storage.UpdateTableDescription(ctx, tableID, description)
	if err != nil {
		return s.toolError("update_table_description", err), nil
	}
	return s.toolJSON(update), nil
}

func (s *Server) handleQueryTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := newArgsReader(request)
	if err != nil {
		return s.toolError("query_table", err), nil
	}
	sql := r.requiredString("sql")
	if err := r.err(); err != nil {
		return s.toolError("query_table", err), nil
	}

	result, err := s.query.Execute(ctx, sql)
	if err != nil {
		return s.toolError("query_table", err), nil
	}
	return s.toolJSON(result), nil
}

func (s *Server) handleGetSQLDialect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.toolJSON(map[string]string{"dialect": string(s.adapter.Name())}), nil
}

func (s *Server) handleRetrieveComponents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := newArgsReader(request)
	if err != nil {
		return s.toolError("retrieve_components", err), nil
	}
	types := r.optionalStringSlice("component_types")
	ids := r.optionalStringSlice("component_ids")
	for _, t := range types {
		if !componentTypes[t] {
			r.addProblem("component_types contains unknown type %q", t)
		}
	}
	if err := r.err(); err != nil {
		return s.toolError("retrieve_components", err), nil
	}

	out, err := s.componentsWithConfigurations(ctx, types, ids)
	if err != nil {
		return s.toolError("retrieve_components", err), nil
	}
	return s.toolJSON(out), nil
}

func (s *Server) handleRetrieveTransformations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := newArgsReader(request)
	if err != nil {
		return s.toolError("retrieve_transformations", err), nil
	}
	ids := r.optionalStringSlice("transformation_ids")
	if err := r.err(); err != nil {
		return s.toolError("retrieve_transformations", err), nil
	}

	out, err := s.componentsWithConfigurations(ctx, []string{"transformation"}, ids)
	if err != nil {
		return s.toolError("retrieve_transformations", err), nil
	}
	return s.toolJSON(out), nil
}

// componentsWithConfigurations lists components either by type filter or, when
// explicit ids are given, by fetching each component and its configurations.
// Explicit ids take precedence over the type filter.
func (s *Server) componentsWithConfigurations(ctx context.Context, types, ids []string) ([]models.ComponentWithConfigurations, error) {
	if len(ids) == 0 {
		return s.storage.ListComponents(ctx, types)
	}

	out := make([]models.ComponentWithConfigurations, 0, len(ids))
	for _, id := range ids {
		component, err := s.storage.GetComponent(ctx, id)
		if err != nil {
			return nil, err
		}
		configs, err := s.storage.ListConfigurations(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, models.ComponentWithConfigurations{
			Component:      *component,
			Configurations: configs,
		})
	}
	return out, nil
}

func (s *Server) handleGetComponentDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := newArgsReader(request)
	if err != nil {
		return s.toolError("get_component_details", err), nil
	}
	componentID := r.requiredString("component_id")
	configurationID := r.requiredString("configuration_id")
	if err := r.err(); err != nil {
		return s.toolError("get_component_details", err), nil
	}

	component, err := s.storage.GetComponent(ctx, componentID)
	if err != nil {
		return s.toolError("get_component_details", err), nil
	}
	configuration, err := s.storage.GetConfiguration(ctx, componentID, configurationID)
	if err != nil {
		return s.toolError("get_component_details", err), nil
	}
	return s.toolJSON(map[string]any{
		"component":     component,
		"configuration": configuration,
	}), nil
}

func (s *Server) handleCreateSQLTransformation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := newArgsReader(request)
	if err != nil {
		return s.toolError("create_sql_transformation", err), nil
	}
	name := r.requiredString("name")
	description := r.requiredString("description")
	statements := r.requiredStringSlice("sql_statements")
	createdTables := r.optionalStringSlice("created_table_names")
	if err := r.err(); err != nil {
		return s.toolError("create_sql_transformation", err), nil
	}

	spec, err := s.transforms.Build(name, description, statements, createdTables)
	if err != nil {
		return s.toolError("create_sql_transformation", err), nil
	}
	configuration, err := s.transforms.Submit(ctx, spec)
	if err != nil {
		return s.toolError("create_sql_transformation", err), nil
	}
	return s.toolJSON(configuration), nil
}

func (s *Server) handleRetrieveJobs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := newArgsReader(request)
	if err != nil {
		return s.toolError("retrieve_jobs", err), nil
	}
	params := jobs.SearchParams{
		ComponentID: r.optionalString("component_id"),
		ConfigID:    r.optionalString("configuration_id"),
		Limit:       int(r.optionalNumber("limit", 0)),
		Offset:      int(r.optionalNumber("offset", 0)),
	}
	for _, raw := range r.optionalStringSlice("status") {
		status := models.JobStatus(raw)
		switch status {
		case models.JobStatusCreated, models.JobStatusWaiting, models.JobStatusProcessing,
			models.JobStatusSuccess, models.JobStatusError, models.JobStatusTerminated:
			params.Status = append(params.Status, status)
		default:
			r.addProblem("status contains unknown value %q", raw)
		}
	}
	if params.Limit < 0 {
		r.addProblem("limit must not be negative")
	}
	if params.Offset < 0 {
		r.addProblem("offset must not be negative")
	}
	if err := r.err(); err != nil {
		return s.toolError("retrieve_jobs", err), nil
	}

	summaries, err := s.jobs.Search(ctx, params)
	if err != nil {
		return s.toolError("retrieve_jobs", err), nil
	}
	return s.toolJSON(summaries), nil
}

func (s *Server) handleGetJobDetail(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := newArgsReader(request)
	if err != nil {
		return s.toolError("get_job_detail", err), nil
	}
	jobID := r.requiredString("job_id")
	if err := r.err(); err != nil {
		return s.toolError("get_job_detail", err), nil
	}

	detail, err := s.jobs.GetDetail(ctx, jobID)
	if err != nil {
		return s.toolError("get_job_detail", err), nil
	}
	return s.toolJSON(detail), nil
}

func (s *Server) handleStartJob(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := newArgsReader(request)
	if err != nil {
		return s.toolError("start_job", err), nil
	}
	componentID := r.requiredString("component_id")
	configurationID := r.requiredString("configuration_id")
	waitSeconds := r.optionalNumber("wait_seconds", 0)
	if waitSeconds < 0 {
		r.addProblem("wait_seconds must not be negative")
	}
	if err := r.err(); err != nil {
		return s.toolError("start_job", err), nil
	}

	handle, err := s.jobs.Submit(ctx, componentID, configurationID)
	if err != nil {
		return s.toolError("start_job", err), nil
	}

	if waitSeconds > 0 {
		maxWait := time.Duration(waitSeconds * float64(time.Second))
		handle, err = s.jobs.AwaitCompletion(ctx, handle, awaitPollCap, maxWait)
		if err != nil {
			return s.toolError("start_job", err), nil
		}
	}
	return s.toolJSON(handle), nil
}

func (s *Server) handleDocsQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, err := newArgsReader(request)
	if err != nil {
		return s.toolError("docs_query", err), nil
	}
	query := r.requiredString("query")
	if err := r.err(); err != nil {
		return s.toolError("docs_query", err), nil
	}

	answer, err := s.docs.Question(ctx, query)
	if err != nil {
		return s.toolError("docs_query", err), nil
	}
	return s.toolJSON(answer), nil
}
