package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmarkevych/storefront/internal/jobs"
	"github.com/vmarkevych/storefront/internal/observability"
	"github.com/vmarkevych/storefront/internal/queue/redisclient"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeQueue struct {
	mu      sync.Mutex
	ready   []jobs.Job
	retried []jobs.Job
	dead    []jobs.Job
	done    map[string]bool
	pingErr error
}

func newFakeQueue(js ...jobs.Job) *fakeQueue {
	return &fakeQueue{ready: js, done: map[string]bool{}}
}

func (q *fakeQueue) Dequeue(ctx context.Context, _ time.Duration) (jobs.Job, error) {
	q.mu.Lock()
	if len(q.ready) > 0 {
		j := q.ready[0]
		q.ready = q.ready[1:]
		q.mu.Unlock()
		return j, nil
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return jobs.Job{}, ctx.Err()
	case <-time.After(5 * time.Millisecond):
		return jobs.Job{}, redisclient.ErrEmpty
	}
}

func (q *fakeQueue) Retry(_ context.Context, j jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.retried = append(q.retried, j)
	return nil
}

func (q *fakeQueue) DeadLetter(_ context.Context, j jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, j)
	return nil
}

func (q *fakeQueue) PromoteDue(context.Context, time.Time) (int, error) { return 0, nil }

func (q *fakeQueue) IsDuplicate(_ context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.done[id], nil
}

func (q *fakeQueue) MarkDone(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.done[id] = true
	return nil
}

func (q *fakeQueue) Ping(context.Context) error { return q.pingErr }

func (q *fakeQueue) doneCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.done)
}

func orderJob(t *testing.T, maxAttempts int) jobs.Job {
	t.Helper()

	b, err := jobs.EncodePayload(jobs.JobOrderConfirmation, jobs.OrderConfirmationPayload{OrderID: "o1", UserID: "u1"})
	require.NoError(t, err)
	j, err := jobs.NewJob(jobs.JobOrderConfirmation, b, time.Time{}, maxAttempts)
	require.NoError(t, err)
	return j
}

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestWorker(q Queue, prom *observability.Prom) *Worker {
	w := New(Config{Concurrency: 2, PollInterval: 10 * time.Millisecond, PromoteInterval: 10 * time.Millisecond},
		q, slog.New(slog.NewTextHandler(io.Discard, nil)), prom, nil)
	w.now = func() time.Time { return fixedNow }
	w.backoff = func(int) time.Duration { return time.Minute }
	return w
}

func TestProcessOne_Success(t *testing.T) {
	j := orderJob(t, 3)
	q := newFakeQueue(j)
	w := newTestWorker(q, nil)

	var got []jobs.Job
	w.Handle(jobs.JobOrderConfirmation, func(ctx context.Context, j jobs.Job) error {
		got = append(got, j)
		return nil
	})

	processed, err := w.ProcessOne(t.Context())
	require.NoError(t, err)
	assert.True(t, processed)
	require.Len(t, got, 1)
	assert.True(t, q.done[j.ID])

	snap := w.Stats().Metrics
	assert.Equal(t, uint64(1), snap.Dequeued)
	assert.Equal(t, uint64(1), snap.Done)
}

func TestProcessOne_EmptyQueue(t *testing.T) {
	w := newTestWorker(newFakeQueue(), nil)

	processed, err := w.ProcessOne(t.Context())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestProcessOne_TransientFailureIsRetried(t *testing.T) {
	q := newFakeQueue(orderJob(t, 3))
	prom := observability.NewProm(prometheus.NewRegistry())
	w := newTestWorker(q, prom)
	w.Handle(jobs.JobOrderConfirmation, func(context.Context, jobs.Job) error {
		return errors.New("provider timeout")
	})

	processed, err := w.ProcessOne(t.Context())
	require.NoError(t, err)
	assert.True(t, processed)

	require.Len(t, q.retried, 1)
	assert.Empty(t, q.dead)
	assert.Empty(t, q.done)

	r := q.retried[0]
	assert.Equal(t, 1, r.Attempts)
	require.NotNil(t, r.LastError)
	assert.Equal(t, "provider timeout", *r.LastError)
	assert.Equal(t, fixedNow.Add(time.Minute), r.RunAt)

	assert.Equal(t, 1.0, testutil.ToFloat64(prom.JobResults.WithLabelValues("order.confirmation", "retry")))
}

func TestProcessOne_DeadLetters(t *testing.T) {
	exhausted := orderJob(t, 2)
	exhausted.Attempts = 1

	tests := []struct {
		name    string
		job     jobs.Job
		handler jobs.Handler
	}{
		{
			name:    "attempts exhausted",
			job:     exhausted,
			handler: func(context.Context, jobs.Job) error { return errors.New("still down") },
		},
		{
			name:    "permanent error",
			job:     orderJob(t, 5),
			handler: func(context.Context, jobs.Job) error { return jobs.Permanent(errors.New("bad payload")) },
		},
		{
			name: "no handler",
			job:  orderJob(t, 5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newFakeQueue(tt.job)
			w := newTestWorker(q, nil)
			if tt.handler != nil {
				w.Handle(jobs.JobOrderConfirmation, tt.handler)
			}

			_, err := w.ProcessOne(t.Context())
			require.NoError(t, err)

			require.Len(t, q.dead, 1)
			assert.Empty(t, q.retried)
			assert.Equal(t, tt.job.Attempts+1, q.dead[0].Attempts)
			assert.Equal(t, uint64(1), w.Stats().Metrics.DeadLettered)
		})
	}
}

func TestProcessOne_SkipsCompletedJob(t *testing.T) {
	j := orderJob(t, 3)
	q := newFakeQueue(j)
	q.done[j.ID] = true

	w := newTestWorker(q, nil)
	calls := 0
	w.Handle(jobs.JobOrderConfirmation, func(context.Context, jobs.Job) error {
		calls++
		return nil
	})

	processed, err := w.ProcessOne(t.Context())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Zero(t, calls)
	assert.Equal(t, uint64(1), w.Stats().Metrics.Duplicates)
}

func TestProcessOne_HandlerSeesTimeout(t *testing.T) {
	q := newFakeQueue(orderJob(t, 3))
	w := newTestWorker(q, nil)
	w.cfg.JobTimeout = 20 * time.Millisecond
	w.Handle(jobs.JobOrderConfirmation, func(ctx context.Context, _ jobs.Job) error {
		<-ctx.Done()
		return ctx.Err()
	})

	_, err := w.ProcessOne(t.Context())
	require.NoError(t, err)
	require.Len(t, q.retried, 1)
	assert.Contains(t, *q.retried[0].LastError, "deadline exceeded")
}

func TestRun_DrainsQueueAndStops(t *testing.T) {
	q := newFakeQueue(orderJob(t, 3), orderJob(t, 3), orderJob(t, 3))
	w := newTestWorker(q, nil)

	var mu sync.Mutex
	seen := 0
	w.Handle(jobs.JobOrderConfirmation, func(context.Context, jobs.Job) error {
		mu.Lock()
		seen++
		mu.Unlock()
		return nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return q.doneCount() == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, w.isReady())

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.False(t, w.isReady())
	mu.Lock()
	assert.Equal(t, 3, seen)
	mu.Unlock()
}

func TestHealthHandler(t *testing.T) {
	q := newFakeQueue()
	w := newTestWorker(q, nil)
	h := w.HealthHandler(prometheus.NewRegistry())

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, get("/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz").Code)

	w.setReady(true)
	assert.Equal(t, http.StatusOK, get("/readyz").Code)

	q.pingErr = errors.New("connection refused")
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz").Code)

	rec := get("/debug/jobs")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"dequeued":0`)

	assert.Equal(t, http.StatusOK, get("/metrics").Code)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoff(0, backoffBase, backoffCap))
	assert.Equal(t, 8*time.Second, backoff(2, backoffBase, backoffCap))
	assert.Equal(t, backoffCap, backoff(20, backoffBase, backoffCap))
	assert.Equal(t, backoffCap, backoff(200, backoffBase, backoffCap))

	d := ExponentialBackoff(1)
	assert.GreaterOrEqual(t, d, 4*time.Second)
	assert.Less(t, d, 4*time.Second+maxJitter)
}
