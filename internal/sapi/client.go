// Package sapi implements the raw HTTP client shared by the storage, queue
// and AI service clients. It owns authentication headers, error
// classification and bounded retries for idempotent reads.
package sapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"keboola-mcp/internal/logging"
	"keboola-mcp/internal/toolerr"
)

const (
	// maxReadAttempts bounds retries of idempotent GET requests. Writes are
	// never retried to avoid duplicate side effects.
	maxReadAttempts = 3

	readRetryInterval = 250 * time.Millisecond
)

// Client is a raw JSON client for one platform service.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logging.Logger
}

// NewClient creates a client rooted at baseURL, authenticating every request
// with the storage token.
func NewClient(baseURL, token string, log *logging.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}
}

// Get makes a GET request and decodes the JSON response into out. Transport
// failures and 5xx responses are retried up to maxReadAttempts times.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, out any) error {
	op := func() error {
		return c.do(ctx, http.MethodGet, endpoint, params, nil, out)
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(readRetryInterval), maxReadAttempts-1),
		ctx,
	)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		c.log.Debug("retrying read request", "endpoint", endpoint, "error", err)
		return err
	}, bo)
}

// Post makes a POST request with a JSON body and decodes the response into
// out. Never retried.
func (c *Client) Post(ctx context.Context, endpoint string, body any, out any) error {
	return c.do(ctx, http.MethodPost, endpoint, nil, body, out)
}

// Put makes a PUT request with a JSON body and decodes the response into out.
// Never retried.
func (c *Client) Put(ctx context.Context, endpoint string, body any, out any) error {
	return c.do(ctx, http.MethodPut, endpoint, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body, out any) error {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(endpoint, "/"))
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return toolerr.Wrap(toolerr.RemoteServiceError, err, "failed to encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return toolerr.Wrap(toolerr.RemoteServiceError, err, "failed to create request")
	}
	req.Header.Set("X-StorageApi-Token", c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("X-Request-Id", uuid.New().String())

	resp, err := c.http.Do(req)
	if err != nil {
		return toolerr.Wrap(toolerr.RemoteServiceError, err, "%s %s failed", method, endpoint)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return toolerr.Wrap(toolerr.RemoteServiceError, err, "failed to read response body")
	}

	if resp.StatusCode == http.StatusNotFound {
		return toolerr.New(toolerr.ResourceNotFound, "%s", remoteMessage(payload))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e := toolerr.New(toolerr.RemoteServiceError, "%s %s returned status %d: %s",
			method, endpoint, resp.StatusCode, remoteMessage(payload))
		if resp.StatusCode >= 500 {
			e.Err = errServerStatus
		}
		return e
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return toolerr.Wrap(toolerr.RemoteServiceError, err, "failed to decode response from %s", endpoint)
	}
	return nil
}

var errServerStatus = fmt.Errorf("server error status")

// retryable reports whether an error is worth retrying on a read path:
// transport failures and 5xx statuses. Missing resources and client errors
// are final.
func retryable(err error) bool {
	var te *toolerr.Error
	if !errors.As(err, &te) {
		return false
	}
	return te.Kind == toolerr.RemoteServiceError && te.Err != nil
}

// remoteMessage extracts the service's error message from a response body,
// falling back to the raw body. The message is surfaced verbatim; the token
// travels only in headers and can never appear here.
func remoteMessage(payload []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(payload))
}
