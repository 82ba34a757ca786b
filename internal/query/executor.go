// Package query runs validated SQL statements against the active dialect
// adapter, enforcing the read-only and row-limit policy.
package query

import (
	"context"
	"errors"
	"io"
	"strings"
	"unicode"

	"keboola-mcp/internal/dialect"
	"keboola-mcp/internal/logging"
	"keboola-mcp/internal/toolerr"
	"keboola-mcp/pkg/models"
)

// DefaultRowLimit caps the number of rows a single query may return when no
// explicit limit is configured.
const DefaultRowLimit = 500

// deniedVerbs is the deny-list of mutating SQL verbs, checked
// case-insensitively against the statement's leading token.
var deniedVerbs = map[string]bool{
	"insert": true, "update": true, "delete": true, "merge": true,
	"drop": true, "create": true, "alter": true, "truncate": true,
	"grant": true, "revoke": true, "replace": true, "call": true,
	"copy": true, "put": true, "get": true, "remove": true, "use": true, "set": true,
	"begin": true, "commit": true, "rollback": true, "undrop": true,
}

// Executor executes read-only statements against one dialect adapter. It is
// safe for concurrent use: every Execute call acquires its own scoped
// connection.
type Executor struct {
	adapter  dialect.Adapter
	rowLimit int
	log      *logging.Logger
}

// NewExecutor creates an Executor with the given row cap. A non-positive
// cap falls back to DefaultRowLimit.
func NewExecutor(adapter dialect.Adapter, rowLimit int, log *logging.Logger) *Executor {
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}
	return &Executor{adapter: adapter, rowLimit: rowLimit, log: log}
}

// Execute runs a single read-only statement and normalizes the result. A
// statement whose leading token is a mutating verb is rejected with
// UnsafeStatement before any connection is made. When the row cap is hit the
// result is truncated and flagged; RowsCount always equals len(Rows).
func (e *Executor) Execute(ctx context.Context, sqlText string) (*models.QueryResult, error) {
	verb := leadingToken(sqlText)
	if verb == "" {
		return nil, toolerr.New(toolerr.UnsafeStatement, "statement has no leading SQL keyword")
	}
	if deniedVerbs[verb] {
		return nil, toolerr.New(toolerr.UnsafeStatement,
			"statement starts with mutating verb %q; only read-only queries are allowed", strings.ToUpper(verb))
	}

	conn, err := e.adapter.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.Query(ctx, sqlText)
	if err != nil {
		return nil, toolerr.Wrap(toolerr.QueryExecutionFailed, err, "query failed on %s", e.adapter.Name())
	}
	defer rows.Close()

	collected := make([][]any, 0, e.rowLimit)
	truncated := false
	for {
		values, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, toolerr.Wrap(toolerr.QueryExecutionFailed, err, "failed to read result row")
		}
		if len(collected) == e.rowLimit {
			// One row past the cap proves truncation; the sentinel row is
			// discarded rather than counted.
			truncated = true
			break
		}
		collected = append(collected, normalizeRow(values))
	}

	result := &models.QueryResult{
		Columns:   rows.Columns(),
		Rows:      collected,
		RowsCount: len(collected),
		Truncated: truncated,
	}
	e.log.Debug("query executed",
		"dialect", e.adapter.Name(), "rows", result.RowsCount, "truncated", result.Truncated)
	return result, nil
}

// leadingToken returns the first SQL keyword of the statement, lowercased,
// skipping whitespace, line comments and block comments.
func leadingToken(sqlText string) string {
	s := sqlText
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		switch {
		case strings.HasPrefix(s, "--"):
			idx := strings.IndexByte(s, '\n')
			if idx < 0 {
				return ""
			}
			s = s[idx+1:]
		case strings.HasPrefix(s, "/*"):
			idx := strings.Index(s, "*/")
			if idx < 0 {
				return ""
			}
			s = s[idx+2:]
		default:
			end := 0
			for end < len(s) && (isIdentChar(s[end])) {
				end++
			}
			return strings.ToLower(s[:end])
		}
	}
}

func isIdentChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// normalizeRow converts driver-specific scalar values into JSON-friendly
// ones. Byte slices become strings; everything else passes through.
func normalizeRow(values []any) []any {
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values
}
