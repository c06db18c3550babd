package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmarkevych/storefront/internal/jobs"
	"github.com/vmarkevych/storefront/internal/queue/redisclient"
)

const (
	resultDone  = "done"
	resultRetry = "retry"
	resultDead  = "dead"
)

var errNoHandler = errors.New("no handler registered")

// ProcessOne takes at most one job off the queue and runs it. The bool
// reports whether a job was taken.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	j, err := w.queue.Dequeue(ctx, w.cfg.PollInterval)
	if err != nil {
		if errors.Is(err, redisclient.ErrEmpty) {
			return false, nil
		}
		return false, err
	}
	w.metrics.IncDequeued()

	log := w.log.With("job_id", j.ID, "job_type", j.Type, "attempt", j.Attempts+1)

	// completion must survive shutdown of the loop
	bg := context.WithoutCancel(ctx)

	dup, err := w.queue.IsDuplicate(bg, j.ID)
	if err != nil {
		log.Warn("dedup check failed, running anyway", "err", err)
	}
	if dup {
		w.metrics.IncDuplicate()
		log.Info("skipping already completed job")
		return true, nil
	}

	start := w.now()
	err = w.execute(bg, j)
	elapsed := w.now().Sub(start)
	w.metrics.ObserveDuration(elapsed)

	if err != nil {
		w.metrics.IncFailed()
		return true, w.handleFailure(bg, log, j, err, elapsed)
	}

	w.metrics.IncDone()
	w.prom.ObserveJob(string(j.Type), resultDone, elapsed)
	log.Info("job done", "duration_ms", elapsed.Milliseconds())

	if err := w.queue.MarkDone(bg, j.ID); err != nil {
		return true, fmt.Errorf("mark done %s: %w", j.ID, err)
	}
	return true, nil
}

func (w *Worker) execute(ctx context.Context, j jobs.Job) error {
	h, ok := w.handlers[j.Type]
	if !ok {
		return jobs.Permanent(fmt.Errorf("%w for %q", errNoHandler, j.Type))
	}

	defer w.prom.TrackJob()()

	jobCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	return h(jobCtx, j)
}

func (w *Worker) handleFailure(ctx context.Context, log *slog.Logger, j jobs.Job, cause error, elapsed time.Duration) error {
	msg := cause.Error()
	j.Attempts++
	j.LastError = &msg
	j.UpdatedAt = w.now().UTC()

	if jobs.IsPermanent(cause) || j.Exhausted() {
		w.metrics.IncDeadLettered()
		w.prom.ObserveJob(string(j.Type), resultDead, elapsed)
		log.Error("job dead-lettered", "err", cause, "attempts", j.Attempts)

		if err := w.queue.DeadLetter(ctx, j); err != nil {
			return fmt.Errorf("dead-letter %s: %w", j.ID, err)
		}
		return nil
	}

	delay := w.backoff(j.Attempts - 1)
	j.RunAt = w.now().Add(delay).UTC()

	w.metrics.IncRetried()
	w.prom.ObserveJob(string(j.Type), resultRetry, elapsed)
	log.Warn("job failed, retrying", "err", cause, "retry_in", delay)

	if err := w.queue.Retry(ctx, j); err != nil {
		return fmt.Errorf("retry %s: %w", j.ID, err)
	}
	return nil
}
