// Package docs implements the client for the AI service documentation
// search endpoint.
package docs

import (
	"context"

	"keboola-mcp/internal/logging"
	"keboola-mcp/internal/sapi"
	"keboola-mcp/pkg/models"
)

// Client talks to the AI service API.
type Client struct {
	raw *sapi.Client
}

// NewClient creates an AI service client for the given service root, e.g.
// https://ai.keboola.com.
func NewClient(aiServiceURL, token string, log *logging.Logger) *Client {
	return &Client{raw: sapi.NewClient(aiServiceURL, token, log)}
}

// Question answers a natural language query using the platform documentation
// as a source.
func (c *Client) Question(ctx context.Context, query string) (*models.DocsAnswer, error) {
	var resp struct {
		Text       string   `json:"text"`
		SourceURLs []string `json:"sourceUrls"`
	}
	if err := c.raw.Post(ctx, "docs/question", map[string]string{"query": query}, &resp); err != nil {
		return nil, err
	}
	return &models.DocsAnswer{Text: resp.Text, SourceURLs: resp.SourceURLs}, nil
}
