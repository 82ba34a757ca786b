package jobs

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"

	"keboola-mcp/internal/logging"
	"keboola-mcp/pkg/models"
)

// API is the queue surface the manager drives. *Client satisfies it; tests
// substitute a scripted fake.
type API interface {
	Submit(ctx context.Context, componentID, configurationID string) (*Handle, error)
	Poll(ctx context.Context, h *Handle) (*Handle, error)
	GetDetail(ctx context.Context, jobID string) (*models.JobDetail, error)
	Search(ctx context.Context, p SearchParams) ([]models.JobSummary, error)
}

// Manager adds bounded waiting on top of the queue client. The poll loop is
// driven by an injected clock, so it is testable without real delays.
type Manager struct {
	api   API
	clock clockwork.Clock
	log   *logging.Logger
}

// NewManager creates a Manager.
func NewManager(api API, clock clockwork.Clock, log *logging.Logger) *Manager {
	return &Manager{api: api, clock: clock, log: log}
}

// Submit delegates to the queue client.
func (m *Manager) Submit(ctx context.Context, componentID, configurationID string) (*Handle, error) {
	return m.api.Submit(ctx, componentID, configurationID)
}

// GetDetail delegates to the queue client.
func (m *Manager) GetDetail(ctx context.Context, jobID string) (*models.JobDetail, error) {
	return m.api.GetDetail(ctx, jobID)
}

// Search delegates to the queue client.
func (m *Manager) Search(ctx context.Context, p SearchParams) ([]models.JobSummary, error) {
	return m.api.Search(ctx, p)
}

// AwaitCompletion polls the job with exponential backoff (starting at 1s,
// capped at maxInterval) until it reaches a terminal state or maxWait
// elapses. On timeout it returns the last observed non-terminal handle with
// a nil error, so the caller can resume polling later. Cancelling the
// context stops the local observation only; the remote job is never
// terminated implicitly.
func (m *Manager) AwaitCompletion(ctx context.Context, h *Handle, maxInterval, maxWait time.Duration) (*Handle, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	if maxInterval < bo.InitialInterval {
		bo.InitialInterval = maxInterval
	}
	bo.MaxInterval = maxInterval
	bo.MaxElapsedTime = 0
	bo.RandomizationFactor = 0
	bo.Reset()

	deadline := m.clock.Now().Add(maxWait)
	for {
		polled, err := m.api.Poll(ctx, h)
		if err != nil {
			return h, err
		}
		h = polled
		if h.Status.Terminal() {
			m.log.Debug("job reached terminal state", "job", h.ID, "status", h.Status)
			return h, nil
		}
		if !m.clock.Now().Before(deadline) {
			m.log.Debug("wait budget exhausted, returning last known state",
				"job", h.ID, "status", h.Status)
			return h, nil
		}

		select {
		case <-ctx.Done():
			return h, ctx.Err()
		case <-m.clock.After(bo.NextBackOff()):
		}
	}
}
