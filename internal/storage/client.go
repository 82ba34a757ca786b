// Package storage implements the client for the remote storage service:
// buckets, tables, components, configurations and their metadata. Reads
// always re-fetch from the remote service; nothing is cached locally.
package storage

import (
	"context"
	"fmt"
	"net/url"

	"keboola-mcp/internal/logging"
	"keboola-mcp/internal/sapi"
	"keboola-mcp/internal/toolerr"
	"keboola-mcp/pkg/models"
)

// descriptionMetadataKey is the metadata key the platform stores bucket and
// table descriptions under.
const descriptionMetadataKey = "KBC.description"

// metadataProvider identifies description updates written through the tools.
const metadataProvider = "user"

// Client talks to the storage service API.
type Client struct {
	raw *sapi.Client
	log *logging.Logger
}

// NewClient creates a storage client for the given API root, e.g.
// https://connection.keboola.com.
func NewClient(apiURL, token string, log *logging.Logger) *Client {
	return &Client{
		raw: sapi.NewClient(apiURL+"/v2/storage", token, log),
		log: log,
	}
}

type metadataEntry struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Timestamp string `json:"timestamp"`
}

type rawBucket struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	DisplayName   string          `json:"displayName"`
	Stage         string          `json:"stage"`
	Description   string          `json:"description"`
	Created       string          `json:"created"`
	DataSizeBytes int64           `json:"dataSizeBytes"`
	Metadata      []metadataEntry `json:"metadata"`
	Tables        []struct {
		ID string `json:"id"`
	} `json:"tables"`
}

type rawTable struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	PrimaryKey    []string        `json:"primaryKey"`
	Created       string          `json:"created"`
	RowsCount     int64           `json:"rowsCount"`
	DataSizeBytes int64           `json:"dataSizeBytes"`
	Columns       []string        `json:"columns"`
	Metadata      []metadataEntry `json:"metadata"`
	Bucket        struct {
		ID string `json:"id"`
	} `json:"bucket"`
}

// extractDescription prefers the plain description field and falls back to
// the description metadata entry.
func extractDescription(description string, metadata []metadataEntry) string {
	if description != "" {
		return description
	}
	for _, entry := range metadata {
		if entry.Key == descriptionMetadataKey && entry.Value != "" {
			return entry.Value
		}
	}
	return ""
}

func (b rawBucket) toModel() models.Bucket {
	return models.Bucket{
		ID:            b.ID,
		Name:          b.Name,
		DisplayName:   b.DisplayName,
		Stage:         b.Stage,
		Description:   extractDescription(b.Description, b.Metadata),
		Created:       b.Created,
		DataSizeBytes: b.DataSizeBytes,
		TablesCount:   len(b.Tables),
	}
}

func (t rawTable) toModel() models.Table {
	return models.Table{
		ID:            t.ID,
		Name:          t.Name,
		BucketID:      t.Bucket.ID,
		Description:   extractDescription(t.Description, t.Metadata),
		PrimaryKey:    t.PrimaryKey,
		Created:       t.Created,
		RowsCount:     t.RowsCount,
		DataSizeBytes: t.DataSizeBytes,
		Columns:       t.Columns,
	}
}

// ListBuckets retrieves all buckets in the project.
func (c *Client) ListBuckets(ctx context.Context) ([]models.Bucket, error) {
	var raw []rawBucket
	params := url.Values{"include": {"metadata"}}
	if err := c.raw.Get(ctx, "buckets", params, &raw); err != nil {
		return nil, err
	}
	buckets := make([]models.Bucket, len(raw))
	for i, b := range raw {
		buckets[i] = b.toModel()
	}
	return buckets, nil
}

// GetBucket retrieves one bucket by id.
func (c *Client) GetBucket(ctx context.Context, bucketID string) (*models.Bucket, error) {
	var raw rawBucket
	if err := c.raw.Get(ctx, fmt.Sprintf("buckets/%s", bucketID), nil, &raw); err != nil {
		return nil, err
	}
	bucket := raw.toModel()
	return &bucket, nil
}

// ListTables retrieves all tables of a bucket, including metadata and
// columns.
func (c *Client) ListTables(ctx context.Context, bucketID string) ([]models.Table, error) {
	var raw []rawTable
	params := url.Values{"include": {"metadata,columns"}}
	if err := c.raw.Get(ctx, fmt.Sprintf("buckets/%s/tables", bucketID), params, &raw); err != nil {
		return nil, err
	}
	tables := make([]models.Table, len(raw))
	for i, t := range raw {
		tables[i] = t.toModel()
	}
	return tables, nil
}

// GetTable retrieves one table by id.
func (c *Client) GetTable(ctx context.Context, tableID string) (*models.Table, error) {
	var raw rawTable
	if err := c.raw.Get(ctx, fmt.Sprintf("tables/%s", tableID), nil, &raw); err != nil {
		return nil, err
	}
	table := raw.toModel()
	return &table, nil
}

type metadataUpdateRequest struct {
	Provider string `json:"provider"`
	Metadata []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"metadata"`
}

func descriptionUpdateRequest(description string) metadataUpdateRequest {
	req := metadataUpdateRequest{Provider: metadataProvider}
	req.Metadata = append(req.Metadata, struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}{Key: descriptionMetadataKey, Value: description})
	return req
}

// UpdateBucketDescription sets the description metadata of a bucket. The
// update fails closed: on any remote error the description is unchanged.
func (c *Client) UpdateBucketDescription(ctx context.Context, bucketID, description string) (*models.DescriptionUpdate, error) {
	var resp []metadataEntry
	endpoint := fmt.Sprintf("buckets/%s/metadata", bucketID)
	if err := c.raw.Post(ctx, endpoint, descriptionUpdateRequest(description), &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, toolerr.New(toolerr.RemoteServiceError,
			"description update for bucket %s returned no metadata entries", bucketID)
	}
	return &models.DescriptionUpdate{
		Success:     true,
		Description: resp[0].Value,
		Timestamp:   resp[0].Timestamp,
	}, nil
}

// UpdateTableDescription sets the description metadata of a table. The
// update fails closed: on any remote error the description is unchanged.
func (c *Client) UpdateTableDescription(ctx context.Context, tableID, description string) (*models.DescriptionUpdate, error) {
	var resp struct {
		Metadata []metadataEntry `json:"metadata"`
	}
	endpoint := fmt.Sprintf("tables/%s/metadata", tableID)
	if err := c.raw.Post(ctx, endpoint, descriptionUpdateRequest(description), &resp); err != nil {
		return nil, err
	}
	if len(resp.Metadata) == 0 {
		return nil, toolerr.New(toolerr.RemoteServiceError,
			"description update for table %s returned no metadata entries", tableID)
	}
	return &models.DescriptionUpdate{
		Success:     true,
		Description: resp.Metadata[0].Value,
		Timestamp:   resp.Metadata[0].Timestamp,
	}, nil
}
