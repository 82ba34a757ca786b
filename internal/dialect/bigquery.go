package dialect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"keboola-mcp/internal/toolerr"
	"keboola-mcp/pkg/models"
)

type bigqueryAdapter struct {
	creds Credentials
}

func (a *bigqueryAdapter) Name() models.BackendKind {
	return models.BackendBigQuery
}

func (a *bigqueryAdapter) Connect(ctx context.Context) (Conn, error) {
	if a.creds.ProjectID == "" {
		return nil, toolerr.New(toolerr.BackendUnavailable,
			"bigquery credentials are not fully configured: project id is required")
	}

	var opts []option.ClientOption
	if a.creds.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(a.creds.CredentialsFile))
	}
	client, err := bigquery.NewClient(ctx, a.creds.ProjectID, opts...)
	if err != nil {
		return nil, toolerr.Wrap(toolerr.BackendUnavailable, err, "failed to create bigquery client")
	}
	return &bqConn{client: client, projectID: a.creds.ProjectID, dataset: a.creds.Dataset}, nil
}

// QuoteIdentifier wraps the identifier in backticks, escaping embedded
// backticks and backslashes.
func (a *bigqueryAdapter) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "`", "\\`")
	return "`" + escaped + "`"
}

func (a *bigqueryAdapter) TableFQN(table string) string {
	return a.QuoteIdentifier(fmt.Sprintf("%s.%s.%s", a.creds.ProjectID, a.creds.Dataset, table))
}

type bqConn struct {
	client    *bigquery.Client
	projectID string
	dataset   string
}

func (c *bqConn) Query(ctx context.Context, query string) (Rows, error) {
	q := c.client.Query(query)
	if c.dataset != "" {
		q.DefaultProjectID = c.projectID
		q.DefaultDatasetID = c.dataset
	}
	it, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	return &bqRows{it: it}, nil
}

func (c *bqConn) Close() error {
	return c.client.Close()
}

type bqRows struct {
	it      *bigquery.RowIterator
	columns []string
}

// Columns is populated from the iterator schema, which the BigQuery client
// fills in on the first Next call.
func (r *bqRows) Columns() []string {
	if r.columns == nil && r.it.Schema != nil {
		cols := make([]string, len(r.it.Schema))
		for i, field := range r.it.Schema {
			cols[i] = field.Name
		}
		r.columns = cols
	}
	return r.columns
}

func (r *bqRows) Next() ([]any, error) {
	var row []bigquery.Value
	err := r.it.Next(&row)
	if errors.Is(err, iterator.Done) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	values := make([]any, len(row))
	for i, v := range row {
		values[i] = v
	}
	return values, nil
}

func (r *bqRows) Close() error {
	return nil
}
