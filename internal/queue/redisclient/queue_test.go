package redisclient

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmarkevych/storefront/internal/jobs"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c := New(Config{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })

	return NewQueue(c, "test:jobs"), mr
}

func newOrderJob(t *testing.T, runAt time.Time) jobs.Job {
	t.Helper()

	b, err := jobs.EncodePayload(jobs.JobOrderConfirmation, jobs.OrderConfirmationPayload{OrderID: "o1", UserID: "u1"})
	require.NoError(t, err)
	j, err := jobs.NewJob(jobs.JobOrderConfirmation, b, runAt, 3)
	require.NoError(t, err)
	return j
}

func TestQueue_EnqueueDequeue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := t.Context()

	j := newOrderJob(t, time.Time{})
	require.NoError(t, q.Enqueue(ctx, j))

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, j.ID, got.ID)
	assert.Equal(t, jobs.JobOrderConfirmation, got.Type)
	assert.JSONEq(t, string(j.Payload), string(got.Payload))

	_, err = q.Dequeue(ctx, time.Second)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestQueue_DelayedJobsArePromotedWhenDue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := t.Context()

	now := time.Now()
	j := newOrderJob(t, now.Add(time.Minute))
	require.NoError(t, q.Enqueue(ctx, j))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Delayed: 1}, stats)

	moved, err := q.PromoteDue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, moved)

	moved, err = q.PromoteDue(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	got, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, j.ID, got.ID)
}

func TestQueue_RetryAndDeadLetter(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := t.Context()

	j := newOrderJob(t, time.Time{})
	j.Attempts = 1
	j.RunAt = time.Now().Add(time.Hour)
	require.NoError(t, q.Retry(ctx, j))
	require.NoError(t, q.DeadLetter(ctx, newOrderJob(t, time.Time{})))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Delayed: 1, Dead: 1}, stats)
}

func TestQueue_MalformedEntryIsDeadLettered(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := t.Context()

	_, err := mr.Lpush("test:jobs:ready", "{not json")
	require.NoError(t, err)

	_, err = q.Dequeue(ctx, time.Second)
	require.ErrorIs(t, err, jobs.ErrInvalidJobPayload)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Dead)
}

func TestQueue_DoneMarkers(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := t.Context()

	dup, err := q.IsDuplicate(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, dup)

	require.NoError(t, q.MarkDone(ctx, "job-1"))
	dup, err = q.IsDuplicate(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, dup)

	mr.FastForward(doneTTL + time.Second)
	dup, err = q.IsDuplicate(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := Connect(t.Context(), Config{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	addr := mr.Addr()
	mr.Close()
	_, err = Connect(t.Context(), Config{Addr: addr, IOTimeout: 200 * time.Millisecond})
	require.Error(t, err)
}
