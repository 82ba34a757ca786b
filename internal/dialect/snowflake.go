package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/snowflakedb/gosnowflake"

	"keboola-mcp/internal/toolerr"
	"keboola-mcp/pkg/models"
)

type snowflakeAdapter struct {
	creds Credentials
}

func (a *snowflakeAdapter) Name() models.BackendKind {
	return models.BackendSnowflake
}

func (a *snowflakeAdapter) Connect(ctx context.Context) (Conn, error) {
	if a.creds.Account == "" || a.creds.User == "" || a.creds.Password == "" {
		return nil, toolerr.New(toolerr.BackendUnavailable,
			"snowflake credentials are not fully configured: account, user and password are required")
	}

	dsn, err := gosnowflake.DSN(&gosnowflake.Config{
		Account:   a.creds.Account,
		User:      a.creds.User,
		Password:  a.creds.Password,
		Warehouse: a.creds.Warehouse,
		Database:  a.creds.Database,
		Schema:    a.creds.Schema,
		Role:      a.creds.Role,
	})
	if err != nil {
		return nil, toolerr.Wrap(toolerr.BackendUnavailable, err, "failed to build snowflake DSN")
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, toolerr.Wrap(toolerr.BackendUnavailable, err, "failed to open snowflake connection")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, toolerr.Wrap(toolerr.BackendUnavailable, err, "snowflake endpoint unreachable")
	}
	return &sqlConn{db: db}, nil
}

// QuoteIdentifier double-quotes the identifier, doubling embedded quotes.
// Snowflake treats quoted identifiers as case sensitive.
func (a *snowflakeAdapter) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (a *snowflakeAdapter) TableFQN(table string) string {
	return fmt.Sprintf("%s.%s.%s",
		a.QuoteIdentifier(a.creds.Database),
		a.QuoteIdentifier(a.creds.Schema),
		a.QuoteIdentifier(table),
	)
}

type sqlConn struct {
	db *sql.DB
}

func (c *sqlConn) Query(ctx context.Context, query string) (Rows, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return &sqlRows{rows: rows, columns: cols}, nil
}

func (c *sqlConn) Close() error {
	return c.db.Close()
}

type sqlRows struct {
	rows    *sql.Rows
	columns []string
}

func (r *sqlRows) Columns() []string {
	return r.columns
}

func (r *sqlRows) Next() ([]any, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	values := make([]any, len(r.columns))
	ptrs := make([]any, len(r.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return values, nil
}

func (r *sqlRows) Close() error {
	return r.rows.Close()
}
