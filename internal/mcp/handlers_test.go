package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"

	"keboola-mcp/internal/dialect"
	"keboola-mcp/internal/jobs"
	"keboola-mcp/internal/logging"
	"keboola-mcp/internal/toolerr"
	"keboola-mcp/pkg/models"
)

type fakeStorage struct {
	buckets     []models.Bucket
	bucket      *models.Bucket
	tables      []models.Table
	table       *models.Table
	update      *models.DescriptionUpdate
	components  []models.ComponentWithConfigurations
	component   *models.Component
	configs     []models.Configuration
	config      *models.Configuration
	err         error
	listedTypes []string
	gotIDs      []string
}

func (f *fakeStorage) ListBuckets(ctx context.Context) ([]models.Bucket, error) {
	return f.buckets, f.err
}

func (f *fakeStorage) GetBucket(ctx context.Context, bucketID string) (*models.Bucket, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.bucket, nil
}

func (f *fakeStorage) ListTables(ctx context.Context, bucketID string) ([]models.Table, error) {
	return f.tables, f.err
}

func (f *fakeStorage) GetTable(ctx context.Context, tableID string) (*models.Table, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.table, nil
}

func (f *fakeStorage) UpdateBucketDescription(ctx context.Context, bucketID, description string) (*models.DescriptionUpdate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.update, nil
}

func (f *fakeStorage) UpdateTableDescription(ctx context.Context, tableID, description string) (*models.DescriptionUpdate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.update, nil
}

func (f *fakeStorage) ListComponents(ctx context.Context, types []string) ([]models.ComponentWithConfigurations, error) {
	f.listedTypes = types
	return f.components, f.err
}

func (f *fakeStorage) ListConfigurations(ctx context.Context, componentID string) ([]models.Configuration, error) {
	return f.configs, f.err
}

func (f *fakeStorage) GetComponent(ctx context.Context, componentID string) (*models.Component, error) {
	f.gotIDs = append(f.gotIDs, componentID)
	if f.err != nil {
		return nil, f.err
	}
	return f.component, nil
}

func (f *fakeStorage) GetConfiguration(ctx context.Context, componentID, configurationID string) (*models.Configuration, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.config, nil
}

type fakeQuery struct {
	result  *models.QueryResult
	err     error
	lastSQL string
}

func (f *fakeQuery) Execute(ctx context.Context, sql string) (*models.QueryResult, error) {
	f.lastSQL = sql
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeJobs struct {
	handle    *jobs.Handle
	awaited   *jobs.Handle
	detail    *models.JobDetail
	summaries []models.JobSummary
	err       error
	params    jobs.SearchParams
	waited    time.Duration
}

func (f *fakeJobs) Submit(ctx context.Context, componentID, configurationID string) (*jobs.Handle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.handle, nil
}

func (f *fakeJobs) GetDetail(ctx context.Context, jobID string) (*models.JobDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.detail, nil
}

func (f *fakeJobs) Search(ctx context.Context, p jobs.SearchParams) ([]models.JobSummary, error) {
	f.params = p
	return f.summaries, f.err
}

func (f *fakeJobs) AwaitCompletion(ctx context.Context, h *jobs.Handle, maxInterval, maxWait time.Duration) (*jobs.Handle, error) {
	f.waited = maxWait
	if f.awaited != nil {
		return f.awaited, nil
	}
	return h, nil
}

type fakeDocs struct {
	answer *models.DocsAnswer
	err    error
}

func (f *fakeDocs) Question(ctx context.Context, query string) (*models.DocsAnswer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

type fakeTransforms struct {
	spec   *models.TransformationSpec
	config *models.Configuration
	err    error
}

func (f *fakeTransforms) Build(name, description string, statements, createdTables []string) (*models.TransformationSpec, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.spec, nil
}

func (f *fakeTransforms) Submit(ctx context.Context, spec *models.TransformationSpec) (*models.Configuration, error) {
	return f.config, nil
}

type testAdapter struct{}

func (testAdapter) Connect(ctx context.Context) (dialect.Conn, error) { return nil, nil }
func (testAdapter) QuoteIdentifier(name string) string                { return `"` + name + `"` }
func (testAdapter) Name() models.BackendKind                          { return models.BackendSnowflake }
func (testAdapter) TableFQN(table string) string {
	return `"DB"."SCHEMA"."` + table + `"`
}

type testDeps struct {
	storage    *fakeStorage
	query      *fakeQuery
	jobs       *fakeJobs
	docs       *fakeDocs
	transforms *fakeTransforms
}

func newTestServer() (*Server, *testDeps) {
	deps := &testDeps{
		storage:    &fakeStorage{},
		query:      &fakeQuery{},
		jobs:       &fakeJobs{},
		docs:       &fakeDocs{},
		transforms: &fakeTransforms{},
	}
	srv := NewServer(Deps{
		Logger:     logging.NewLogger("error"),
		Adapter:    testAdapter{},
		Storage:    deps.storage,
		Query:      deps.query,
		Jobs:       deps.jobs,
		Docs:       deps.docs,
		Transforms: deps.transforms,
	})
	return srv, deps
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	assert.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	assert.True(t, ok, "expected text content")
	return text.Text
}

func TestRetrieveBuckets(t *testing.T) {
	srv, deps := newTestServer()
	deps.storage.buckets = []models.Bucket{{ID: "in.c-raw", Name: "c-raw"}}

	result, err := srv.handleRetrieveBuckets(context.Background(), callRequest(nil))

	assert.NoError(t, err)
	assert.False(t, result.IsError)

	var buckets []models.Bucket
	assert.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &buckets))
	assert.Equal(t, "in.c-raw", buckets[0].ID)
}

func TestGetBucketDetail_MissingArgument(t *testing.T) {
	srv, _ := newTestServer()

	result, err := srv.handleGetBucketDetail(context.Background(), callRequest(map[string]interface{}{}))

	assert.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "InvalidArguments")
	assert.Contains(t, resultText(t, result), "bucket_id is required")
}

func TestUpdateBucketDescription_CollectsAllViolations(t *testing.T) {
	srv, _ := newTestServer()

	result, err := srv.handleUpdateBucketDescription(context.Background(),
		callRequest(map[string]interface{}{"bucket_id": float64(7)}))

	assert.NoError(t, err)
	assert.True(t, result.IsError)
	text := resultText(t, result)
	// Both violations in a single error, not just the first one.
	assert.Contains(t, text, "bucket_id must be a string")
	assert.Contains(t, text, "description is required")
}

func TestGetTableDetail_QuotesIdentifiers(t *testing.T) {
	srv, deps := newTestServer()
	deps.storage.table = &models.Table{
		ID:      "in.c-raw.users",
		Name:    "users",
		Columns: []string{"id", "Full Name"},
	}

	result, err := srv.handleGetTableDetail(context.Background(),
		callRequest(map[string]interface{}{"table_id": "in.c-raw.users"}))

	assert.NoError(t, err)
	assert.False(t, result.IsError)

	var detail models.TableDetail
	assert.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &detail))
	assert.Equal(t, `"DB"."SCHEMA"."users"`, detail.FullyQualifiedName)
	assert.Equal(t, `"id"`, detail.ColumnInfo[0].QuotedName)
	assert.Equal(t, `"Full Name"`, detail.ColumnInfo[1].QuotedName)
}

func TestGetTableDetail_NotFoundEnvelope(t *testing.T) {
	srv, deps := newTestServer()
	deps.storage.err = toolerr.New(toolerr.ResourceNotFound, "table not found")

	result, err := srv.handleGetTableDetail(context.Background(),
		callRequest(map[string]interface{}{"table_id": "in.c-x.y"}))

	assert.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "ResourceNotFound: table not found")
}

func TestQueryTable_PassesSQLThrough(t *testing.T) {
	srv, deps := newTestServer()
	deps.query.result = &models.QueryResult{Columns: []string{"n"}, Rows: [][]any{{float64(1)}}, RowsCount: 1}

	result, err := srv.handleQueryTable(context.Background(),
		callRequest(map[string]interface{}{"sql": "SELECT 1 AS n"}))

	assert.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "SELECT 1 AS n", deps.query.lastSQL)
}

func TestQueryTable_UnsafeStatementEnvelope(t *testing.T) {
	srv, deps := newTestServer()
	deps.query.err = toolerr.New(toolerr.UnsafeStatement, "statement starts with mutating verb")

	result, err := srv.handleQueryTable(context.Background(),
		callRequest(map[string]interface{}{"sql": "DROP TABLE t"}))

	assert.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "UnsafeStatement")
}

func TestGetSQLDialect(t *testing.T) {
	srv, _ := newTestServer()

	result, err := srv.handleGetSQLDialect(context.Background(), callRequest(nil))

	assert.NoError(t, err)
	var out map[string]string
	assert.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Equal(t, "snowflake", out["dialect"])
}

func TestRetrieveComponents_TypeFilter(t *testing.T) {
	srv, deps := newTestServer()
	deps.storage.components = []models.ComponentWithConfigurations{
		{Component: models.Component{ID: "keboola.ex-http"}},
	}

	result, err := srv.handleRetrieveComponents(context.Background(),
		callRequest(map[string]interface{}{"component_types": []interface{}{"extractor"}}))

	assert.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, []string{"extractor"}, deps.storage.listedTypes)
}

func TestRetrieveComponents_UnknownType(t *testing.T) {
	srv, _ := newTestServer()

	result, err := srv.handleRetrieveComponents(context.Background(),
		callRequest(map[string]interface{}{"component_types": []interface{}{"database"}}))

	assert.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "InvalidArguments")
}

func TestRetrieveComponents_ExplicitIDs(t *testing.T) {
	srv, deps := newTestServer()
	deps.storage.component = &models.Component{ID: "keboola.ex-http"}
	deps.storage.configs = []models.Configuration{{ID: "1"}}

	result, err := srv.handleRetrieveComponents(context.Background(),
		callRequest(map[string]interface{}{"component_ids": []interface{}{"keboola.ex-http"}}))

	assert.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, []string{"keboola.ex-http"}, deps.storage.gotIDs)

	var out []models.ComponentWithConfigurations
	assert.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Len(t, out, 1)
	assert.Len(t, out[0].Configurations, 1)
}

func TestRetrieveTransformations_DefaultsToTransformationType(t *testing.T) {
	srv, deps := newTestServer()

	_, err := srv.handleRetrieveTransformations(context.Background(), callRequest(nil))

	assert.NoError(t, err)
	assert.Equal(t, []string{"transformation"}, deps.storage.listedTypes)
}

func TestCreateSQLTransformation_InvalidSpecEnvelope(t *testing.T) {
	srv, deps := newTestServer()
	deps.transforms.err = toolerr.New(toolerr.InvalidSpec, "output table missing")

	result, err := srv.handleCreateSQLTransformation(context.Background(),
		callRequest(map[string]interface{}{
			"name":           "t",
			"description":    "d",
			"sql_statements": []interface{}{"SELECT 1"},
		}))

	assert.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "InvalidSpec")
}

func TestCreateSQLTransformation_ReturnsConfiguration(t *testing.T) {
	srv, deps := newTestServer()
	deps.transforms.spec = &models.TransformationSpec{Name: "t"}
	deps.transforms.config = &models.Configuration{ID: "55", Name: "t"}

	result, err := srv.handleCreateSQLTransformation(context.Background(),
		callRequest(map[string]interface{}{
			"name":           "t",
			"description":    "d",
			"sql_statements": []interface{}{"SELECT 1"},
		}))

	assert.NoError(t, err)
	assert.False(t, result.IsError)

	var cfg models.Configuration
	assert.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &cfg))
	assert.Equal(t, "55", cfg.ID)
}

func TestRetrieveJobs_MapsFilters(t *testing.T) {
	srv, deps := newTestServer()

	_, err := srv.handleRetrieveJobs(context.Background(),
		callRequest(map[string]interface{}{
			"component_id": "keboola.ex-http",
			"status":       []interface{}{"processing"},
			"limit":        float64(25),
			"offset":       float64(50),
		}))

	assert.NoError(t, err)
	assert.Equal(t, "keboola.ex-http", deps.jobs.params.ComponentID)
	assert.Equal(t, []models.JobStatus{models.JobStatusProcessing}, deps.jobs.params.Status)
	assert.Equal(t, 25, deps.jobs.params.Limit)
	assert.Equal(t, 50, deps.jobs.params.Offset)
}

func TestRetrieveJobs_RejectsUnknownStatus(t *testing.T) {
	srv, _ := newTestServer()

	result, err := srv.handleRetrieveJobs(context.Background(),
		callRequest(map[string]interface{}{"status": []interface{}{"paused"}}))

	assert.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), `unknown value "paused"`)
}

func TestStartJob_ReturnsImmediatelyWithoutWait(t *testing.T) {
	srv, deps := newTestServer()
	deps.jobs.handle = &jobs.Handle{ID: "9", Status: models.JobStatusCreated}

	result, err := srv.handleStartJob(context.Background(),
		callRequest(map[string]interface{}{
			"component_id":     "keboola.ex-http",
			"configuration_id": "1",
		}))

	assert.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Zero(t, deps.jobs.waited)

	var h jobs.Handle
	assert.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &h))
	assert.Equal(t, models.JobStatusCreated, h.Status)
}

func TestStartJob_WaitsWhenRequested(t *testing.T) {
	srv, deps := newTestServer()
	deps.jobs.handle = &jobs.Handle{ID: "9", Status: models.JobStatusCreated}
	deps.jobs.awaited = &jobs.Handle{ID: "9", Status: models.JobStatusSuccess}

	result, err := srv.handleStartJob(context.Background(),
		callRequest(map[string]interface{}{
			"component_id":     "keboola.ex-http",
			"configuration_id": "1",
			"wait_seconds":     float64(30),
		}))

	assert.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, 30*time.Second, deps.jobs.waited)

	var h jobs.Handle
	assert.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &h))
	assert.Equal(t, models.JobStatusSuccess, h.Status)
}

func TestDocsQuery(t *testing.T) {
	srv, deps := newTestServer()
	deps.docs.answer = &models.DocsAnswer{
		Text:       "Use the HTTP extractor.",
		SourceURLs: []string{"https://help.keboola.com/extractors/http/"},
	}

	result, err := srv.handleDocsQuery(context.Background(),
		callRequest(map[string]interface{}{"query": "how do I pull data from an API"}))

	assert.NoError(t, err)
	assert.False(t, result.IsError)

	var answer models.DocsAnswer
	assert.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &answer))
	assert.Equal(t, "Use the HTTP extractor.", answer.Text)
	assert.Len(t, answer.SourceURLs, 1)
}

func TestToolError_UnclassifiedBecomesRemoteServiceError(t *testing.T) {
	srv, deps := newTestServer()
	deps.docs.err = assert.AnError

	result, err := srv.handleDocsQuery(context.Background(),
		callRequest(map[string]interface{}{"query": "q"}))

	assert.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "RemoteServiceError")
}
