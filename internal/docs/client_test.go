package docs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"keboola-mcp/internal/logging"
)

func TestQuestion(t *testing.T) {
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/docs/question", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"text":       "Snowflake is the default backend.",
			"sourceUrls": []string{"https://help.keboola.com/storage/"},
		})
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "token", logging.NewLogger("error"))
	answer, err := client.Question(context.Background(), "what is the default backend")

	assert.NoError(t, err)
	assert.Equal(t, "what is the default backend", payload["query"])
	assert.Equal(t, "Snowflake is the default backend.", answer.Text)
	assert.Equal(t, []string{"https://help.keboola.com/storage/"}, answer.SourceURLs)
}
