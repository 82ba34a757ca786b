package mcp

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"keboola-mcp/internal/toolerr"
)

// argsReader reads typed fields out of a tool call's argument map and
// collects every violation instead of stopping at the first one, so a
// malformed call is reported completely in a single error.
type argsReader struct {
	args     map[string]interface{}
	problems []string
}

func newArgsReader(request mcp.CallToolRequest) (*argsReader, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		if request.Params.Arguments == nil {
			args = map[string]interface{}{}
		} else {
			return nil, toolerr.New(toolerr.InvalidArguments, "arguments must be an object")
		}
	}
	return &argsReader{args: args}, nil
}

func (r *argsReader) addProblem(format string, args ...any) {
	r.problems = append(r.problems, fmt.Sprintf(format, args...))
}

// requiredString reads a mandatory non-empty string field.
func (r *argsReader) requiredString(name string) string {
	v, ok := r.args[name]
	if !ok {
		r.addProblem("%s is required", name)
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.addProblem("%s must be a string", name)
		return ""
	}
	if strings.TrimSpace(s) == "" {
		r.addProblem("%s must not be empty", name)
		return ""
	}
	return s
}

// optionalString reads a string field, returning "" when absent.
func (r *argsReader) optionalString(name string) string {
	v, ok := r.args[name]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.addProblem("%s must be a string", name)
		return ""
	}
	return s
}

// optionalNumber reads a numeric field, returning def when absent. JSON
// numbers decode as float64.
func (r *argsReader) optionalNumber(name string, def float64) float64 {
	v, ok := r.args[name]
	if !ok || v == nil {
		return def
	}
	f, ok := v.(float64)
	if !ok {
		r.addProblem("%s must be a number", name)
		return def
	}
	return f
}

// requiredStringSlice reads a mandatory non-empty array of strings.
func (r *argsReader) requiredStringSlice(name string) []string {
	out := r.stringSlice(name, true)
	if len(out) == 0 {
		return nil
	}
	return out
}

// optionalStringSlice reads an array of strings, returning nil when absent.
func (r *argsReader) optionalStringSlice(name string) []string {
	return r.stringSlice(name, false)
}

func (r *argsReader) stringSlice(name string, required bool) []string {
	v, ok := r.args[name]
	if !ok || v == nil {
		if required {
			r.addProblem("%s is required", name)
		}
		return nil
	}
	items, ok := v.([]interface{})
	if !ok {
		r.addProblem("%s must be an array of strings", name)
		return nil
	}
	if required && len(items) == 0 {
		r.addProblem("%s must not be empty", name)
		return nil
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			r.addProblem("%s[%d] must be a string", name, i)
			continue
		}
		out = append(out, s)
	}
	return out
}

// err returns a single InvalidArguments error covering all collected
// violations, or nil when the arguments were well-formed.
func (r *argsReader) err() error {
	if len(r.problems) == 0 {
		return nil
	}
	return toolerr.New(toolerr.InvalidArguments, "%s", strings.Join(r.problems, "; "))
}
