package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vmarkevych/storefront/internal/jobs"
)

const (
	doneTTL      = 24 * time.Hour
	promoteBatch = 100
)

// ErrEmpty is returned by Dequeue when nothing became ready before the timeout.
var ErrEmpty = errors.New("queue empty")

// Queue is a job queue on plain Redis structures:
//
//	<key>:ready    list, LPUSH in / BRPOP out
//	<key>:delayed  zset scored by run_at in unix ms
//	<key>:dead     list of jobs that will not be retried
//	<key>:done:<id> idempotency marker with a TTL
type Queue struct {
	rdb *redis.Client
	key string
	now func() time.Time
}

func NewQueue(c *Client, key string) *Queue {
	return &Queue{rdb: c.Raw(), key: key, now: time.Now}
}

func (q *Queue) readyKey() string   { return q.key + ":ready" }
func (q *Queue) delayedKey() string { return q.key + ":delayed" }
func (q *Queue) deadKey() string    { return q.key + ":dead" }
func (q *Queue) doneKey(id string) string {
	return q.key + ":done:" + id
}

// Enqueue makes j ready now, or parks it in the delayed set when RunAt is
// in the future.
func (q *Queue) Enqueue(ctx context.Context, j jobs.Job) error {
	b, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	if j.RunAt.After(q.now()) {
		return q.rdb.ZAdd(ctx, q.delayedKey(), redis.Z{
			Score:  float64(j.RunAt.UnixMilli()),
			Member: b,
		}).Err()
	}
	return q.rdb.LPush(ctx, q.readyKey(), b).Err()
}

// Dequeue blocks up to timeout for a ready job.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (jobs.Job, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.readyKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return jobs.Job{}, ErrEmpty
		}
		return jobs.Job{}, err
	}

	// BRPOP replies with [key, value]
	raw := res[1]

	var j jobs.Job
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		_ = q.rdb.LPush(ctx, q.deadKey(), raw).Err()
		return jobs.Job{}, fmt.Errorf("%w: %v", jobs.ErrInvalidJobPayload, err)
	}
	return j, nil
}

// Retry schedules j to run again at j.RunAt.
func (q *Queue) Retry(ctx context.Context, j jobs.Job) error {
	b, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return q.rdb.ZAdd(ctx, q.delayedKey(), redis.Z{
		Score:  float64(j.RunAt.UnixMilli()),
		Member: b,
	}).Err()
}

func (q *Queue) DeadLetter(ctx context.Context, j jobs.Job) error {
	b, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return q.rdb.LPush(ctx, q.deadKey(), b).Err()
}

// PromoteDue moves delayed jobs whose run_at has passed onto the ready list.
// ZREM decides ownership, so concurrent promoters never duplicate a job.
func (q *Queue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	due, err := q.rdb.ZRangeByScore(ctx, q.delayedKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: promoteBatch,
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, member := range due {
		removed, err := q.rdb.ZRem(ctx, q.delayedKey(), member).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}
		if err := q.rdb.LPush(ctx, q.readyKey(), member).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// IsDuplicate reports whether a job with this id already completed.
func (q *Queue) IsDuplicate(ctx context.Context, id string) (bool, error) {
	n, err := q.rdb.Exists(ctx, q.doneKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return n > 0, nil
}

func (q *Queue) MarkDone(ctx context.Context, id string) error {
	return q.rdb.Set(ctx, q.doneKey(id), "1", doneTTL).Err()
}

type Stats struct {
	Ready   int64 `json:"ready"`
	Delayed int64 `json:"delayed"`
	Dead    int64 `json:"dead"`
}

func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.rdb.Pipeline()
	ready := pipe.LLen(ctx, q.readyKey())
	delayed := pipe.ZCard(ctx, q.delayedKey())
	dead := pipe.LLen(ctx, q.deadKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, err
	}
	return Stats{Ready: ready.Val(), Delayed: delayed.Val(), Dead: dead.Val()}, nil
}

// Ping lets the queue stand in as a readiness check.
func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}
