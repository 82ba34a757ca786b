package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"keboola-mcp/internal/logging"
	"keboola-mcp/pkg/models"
)

// scriptedAPI replays a fixed sequence of job statuses on successive polls.
type scriptedAPI struct {
	statuses []models.JobStatus
	polls    int
	pollErr  error
}

func (a *scriptedAPI) Submit(ctx context.Context, componentID, configurationID string) (*Handle, error) {
	return &Handle{ID: "job-1", ComponentID: componentID, ConfigID: configurationID, Status: models.JobStatusCreated}, nil
}

func (a *scriptedAPI) Poll(ctx context.Context, h *Handle) (*Handle, error) {
	if a.pollErr != nil {
		return nil, a.pollErr
	}
	idx := a.polls
	if idx >= len(a.statuses) {
		idx = len(a.statuses) - 1
	}
	a.polls++
	return &Handle{ID: h.ID, Status: a.statuses[idx]}, nil
}

func (a *scriptedAPI) GetDetail(ctx context.Context, jobID string) (*models.JobDetail, error) {
	return &models.JobDetail{JobSummary: models.JobSummary{ID: jobID}}, nil
}

func (a *scriptedAPI) Search(ctx context.Context, p SearchParams) ([]models.JobSummary, error) {
	return nil, nil
}

func newTestManager(api API, clock clockwork.Clock) *Manager {
	return NewManager(api, clock, logging.NewLogger("error"))
}

func TestAwaitCompletion_TerminalOnFirstPoll(t *testing.T) {
	api := &scriptedAPI{statuses: []models.JobStatus{models.JobStatusSuccess}}
	m := newTestManager(api, clockwork.NewFakeClock())

	h, err := m.AwaitCompletion(context.Background(),
		&Handle{ID: "job-1", Status: models.JobStatusCreated}, 8*time.Second, time.Minute)

	assert.NoError(t, err)
	assert.Equal(t, models.JobStatusSuccess, h.Status)
	assert.Equal(t, 1, api.polls)
}

func TestAwaitCompletion_ProgressesThroughStates(t *testing.T) {
	api := &scriptedAPI{statuses: []models.JobStatus{
		models.JobStatusWaiting,
		models.JobStatusProcessing,
		models.JobStatusError,
	}}
	clock := clockwork.NewFakeClock()
	m := newTestManager(api, clock)

	type result struct {
		h   *Handle
		err error
	}
	done := make(chan result, 1)
	go func() {
		h, err := m.AwaitCompletion(context.Background(),
			&Handle{ID: "job-1", Status: models.JobStatusCreated}, 8*time.Second, time.Hour)
		done <- result{h, err}
	}()

	// Two non-terminal polls sleep; fire each timer.
	for i := 0; i < 2; i++ {
		clock.BlockUntil(1)
		clock.Advance(10 * time.Second)
	}

	res := <-done
	assert.NoError(t, res.err)
	assert.Equal(t, models.JobStatusError, res.h.Status)
	assert.Equal(t, 3, api.polls)
}

func TestAwaitCompletion_TimeoutReturnsLastState(t *testing.T) {
	api := &scriptedAPI{statuses: []models.JobStatus{models.JobStatusProcessing}}
	clock := clockwork.NewFakeClock()
	m := newTestManager(api, clock)

	type result struct {
		h   *Handle
		err error
	}
	done := make(chan result, 1)
	go func() {
		h, err := m.AwaitCompletion(context.Background(),
			&Handle{ID: "job-1", Status: models.JobStatusCreated}, 8*time.Second, 5*time.Second)
		done <- result{h, err}
	}()

	// First poll is non-terminal and inside the budget; advancing past the
	// deadline makes the second poll the last one.
	clock.BlockUntil(1)
	clock.Advance(10 * time.Second)

	res := <-done
	assert.NoError(t, res.err)
	assert.Equal(t, models.JobStatusProcessing, res.h.Status)
	assert.Equal(t, 2, api.polls)
}

func TestAwaitCompletion_ZeroWaitPollsOnce(t *testing.T) {
	api := &scriptedAPI{statuses: []models.JobStatus{models.JobStatusWaiting}}
	m := newTestManager(api, clockwork.NewFakeClock())

	h, err := m.AwaitCompletion(context.Background(),
		&Handle{ID: "job-1", Status: models.JobStatusCreated}, 8*time.Second, 0)

	assert.NoError(t, err)
	assert.Equal(t, models.JobStatusWaiting, h.Status)
	assert.Equal(t, 1, api.polls)
}

func TestAwaitCompletion_ContextCancelStopsObservation(t *testing.T) {
	api := &scriptedAPI{statuses: []models.JobStatus{models.JobStatusProcessing}}
	clock := clockwork.NewFakeClock()
	m := newTestManager(api, clock)

	ctx, cancel := context.WithCancel(context.Background())

	type result struct {
		h   *Handle
		err error
	}
	done := make(chan result, 1)
	go func() {
		h, err := m.AwaitCompletion(ctx,
			&Handle{ID: "job-1", Status: models.JobStatusCreated}, 8*time.Second, time.Hour)
		done <- result{h, err}
	}()

	clock.BlockUntil(1)
	cancel()

	res := <-done
	assert.ErrorIs(t, res.err, context.Canceled)
	assert.Equal(t, models.JobStatusProcessing, res.h.Status)
}

func TestAwaitCompletion_PollErrorSurfaces(t *testing.T) {
	api := &scriptedAPI{pollErr: fmt.Errorf("queue unreachable")}
	m := newTestManager(api, clockwork.NewFakeClock())

	h, err := m.AwaitCompletion(context.Background(),
		&Handle{ID: "job-1", Status: models.JobStatusCreated}, 8*time.Second, time.Minute)

	assert.Error(t, err)
	assert.Equal(t, "job-1", h.ID)
}

func TestJobStatusTerminal(t *testing.T) {
	assert.True(t, models.JobStatusSuccess.Terminal())
	assert.True(t, models.JobStatusError.Terminal())
	assert.True(t, models.JobStatusTerminated.Terminal())
	assert.False(t, models.JobStatusCreated.Terminal())
	assert.False(t, models.JobStatusWaiting.Terminal())
	assert.False(t, models.JobStatusProcessing.Terminal())
}
