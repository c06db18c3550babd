package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmarkevych/storefront/internal/jobs"
	"github.com/vmarkevych/storefront/internal/observability"
	"github.com/vmarkevych/storefront/internal/queue/redisclient"
)

// Queue is the subset of the redis queue the worker drives.
type Queue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (jobs.Job, error)
	Retry(ctx context.Context, j jobs.Job) error
	DeadLetter(ctx context.Context, j jobs.Job) error
	PromoteDue(ctx context.Context, now time.Time) (int, error)
	IsDuplicate(ctx context.Context, id string) (bool, error)
	MarkDone(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type Config struct {
	Concurrency     int
	PollInterval    time.Duration // how long one dequeue blocks
	PromoteInterval time.Duration
	JobTimeout      time.Duration
	ShutdownGrace   time.Duration
}

type Worker struct {
	cfg      Config
	queue    Queue
	log      *slog.Logger
	prom     *observability.Prom
	metrics  *observability.JobMetrics
	handlers map[jobs.JobType]jobs.Handler
	now      func() time.Time
	backoff  func(attempt int) time.Duration

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, queue Queue, log *slog.Logger, prom *observability.Prom, metrics *observability.JobMetrics) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.PromoteInterval <= 0 {
		cfg.PromoteInterval = 500 * time.Millisecond
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Second
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewJobMetrics()
	}

	return &Worker{
		cfg:      cfg,
		queue:    queue,
		log:      log,
		prom:     prom,
		metrics:  metrics,
		handlers: make(map[jobs.JobType]jobs.Handler),
		now:      time.Now,
		backoff:  ExponentialBackoff,
	}
}

// Handle registers h for jobs of type t. Call before Run.
func (w *Worker) Handle(t jobs.JobType, h jobs.Handler) {
	w.handlers[t] = h
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) isReady() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

// Run processes jobs until ctx is cancelled. In-flight jobs get
// ShutdownGrace to finish.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	w.log.Info("worker started", "concurrency", w.cfg.Concurrency)

	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < w.cfg.Concurrency; i++ {
		id := i
		g.Go(func() error {
			w.loop(gctx, id)
			return nil
		})
	}

	g.Go(func() error {
		w.promoteLoop(gctx)
		return nil
	})

	<-ctx.Done()
	w.setReady(false)
	w.log.Info("worker received shutdown signal")

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(w.cfg.ShutdownGrace):
		return errors.New("worker shutdown grace exceeded")
	}
}

func (w *Worker) loop(ctx context.Context, id int) {
	log := w.log.With("loop", id)

	for ctx.Err() == nil {
		processed, err := w.ProcessOne(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error("process job", "err", err)
		}
		if !processed && err != nil {
			// back off a little on queue errors
			select {
			case <-ctx.Done():
			case <-time.After(w.cfg.PollInterval):
			}
		}
	}
}

func (w *Worker) promoteLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PromoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.queue.PromoteDue(ctx, w.now())
			if err != nil {
				if ctx.Err() == nil {
					w.log.Error("promote delayed jobs", "err", err)
				}
				continue
			}
			if n > 0 {
				w.log.Debug("promoted delayed jobs", "count", n)
			}
		}
	}
}

// Stats is what /debug/jobs reports.
type Stats struct {
	Ready   bool                             `json:"ready"`
	Metrics observability.JobMetricsSnapshot `json:"metrics"`
}

func (w *Worker) Stats() Stats {
	return Stats{Ready: w.isReady(), Metrics: w.metrics.Snapshot()}
}

var _ Queue = (*redisclient.Queue)(nil)
