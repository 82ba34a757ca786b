// Package dialect encapsulates the per-warehouse differences between the two
// supported SQL backends: connection parameters, identifier quoting and
// result decoding. The adapter variant is selected once from the stored
// credential kind, never sniffed at call time.
package dialect

import (
	"context"

	"keboola-mcp/internal/toolerr"
	"keboola-mcp/pkg/models"
)

// Credentials describes a provisioned workspace. It is immutable after
// creation and owned by the process for its lifetime; it is never persisted.
type Credentials struct {
	Kind models.BackendKind

	// Snowflake
	Account   string
	User      string
	Password  string
	Warehouse string
	Database  string
	Schema    string
	Role      string

	// BigQuery
	ProjectID       string
	Dataset         string
	CredentialsFile string
}

// Rows is the common cursor shape both backends decode into. Columns is
// valid after the first Next call; Next returns io.EOF when the result set
// is exhausted.
type Rows interface {
	Columns() []string
	Next() ([]any, error)
	Close() error
}

// Conn is a scoped connection to the workspace. Each query execution
// acquires its own Conn, so independent queries never share mutable state.
type Conn interface {
	Query(ctx context.Context, sql string) (Rows, error)
	Close() error
}

// Adapter is the polymorphic capability surface of one warehouse dialect.
type Adapter interface {
	// Connect opens a scoped connection. It fails with BackendUnavailable
	// when the credentials are malformed or the endpoint is unreachable.
	Connect(ctx context.Context) (Conn, error)
	// QuoteIdentifier quotes a single identifier for interpolation into
	// generated SQL. Quoting preserves case sensitivity and prevents
	// injection; it must be applied to every interpolated identifier.
	QuoteIdentifier(name string) string
	// Name returns the dialect name.
	Name() models.BackendKind
	// TableFQN returns the fully qualified, quoted name of a workspace table.
	TableFQN(table string) string
}

// ForCredentials selects the adapter variant for the stored credential kind.
// The selection is a pure function of the kind.
func ForCredentials(creds Credentials) (Adapter, error) {
	switch creds.Kind {
	case models.BackendSnowflake:
		return &snowflakeAdapter{creds: creds}, nil
	case models.BackendBigQuery:
		return &bigqueryAdapter{creds: creds}, nil
	default:
		return nil, toolerr.New(toolerr.BackendUnavailable, "unsupported backend kind %q", creds.Kind)
	}
}
