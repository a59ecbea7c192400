// Package queue contains the delayed-job dispatch strategy, backed by River.
// Jobs live in postgres, so a scheduled delivery survives process restarts.
// River needs the pgx driver, so the dispatcher runs on its own pgxpool next
// to the lib/pq connection the event store uses.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"mailscheduler/internal/domain"
)

const defaultMaxWorkers = 10

// deliveryArgs is the River job payload for one scheduled delivery. The
// recipient list rides along for observability only; the worker reloads the
// event and uses the stored recipients, so an edit between enqueue and run
// never sends stale addresses.
type deliveryArgs struct {
	EventID    string    `json:"event_id"`
	Recipients []string  `json:"recipients,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func (deliveryArgs) Kind() string {
	return "email_delivery"
}

// deliveryWorker runs one delivery attempt when the job comes due.
type deliveryWorker struct {
	river.WorkerDefaults[deliveryArgs]
	repo     domain.EventRepository
	executor domain.DeliveryExecutor
	logger   *slog.Logger
}

func (w *deliveryWorker) Work(ctx context.Context, job *river.Job[deliveryArgs]) error {
	ev, err := w.repo.GetByID(ctx, job.Args.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Event deleted after enqueue; nothing to retry.
			w.logger.WarnContext(ctx, "delivery job for missing event discarded", "event_id", job.Args.EventID)
			return nil
		}
		return err
	}

	// The event may have been rescheduled after this job was enqueued.
	if wait := time.Until(ev.Timestamp); wait > 0 {
		w.logger.InfoContext(ctx, "event rescheduled, snoozing delivery job",
			"event_id", ev.ID,
			"scheduled_at", ev.Timestamp,
		)
		return river.JobSnooze(wait)
	}

	res, err := w.executor.Deliver(ctx, job.Args.EventID)
	if err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "delivery job finished",
		"event_id", job.Args.EventID,
		"outcome", res.Outcome,
	)
	return nil
}

// QueueDispatcher schedules a delayed job per event at creation time; the job
// body runs at or after the event's timestamp on a worker goroutine.
type QueueDispatcher struct {
	pool   *pgxpool.Pool
	client *river.Client[pgx.Tx]
	logger *slog.Logger
}

// Option configures the dispatcher.
type Option func(*config)

type config struct {
	maxWorkers int
}

// WithMaxWorkers caps concurrent delivery jobs. Defaults to 10; each worker
// processes one event end-to-end.
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

// NewQueueDispatcher returns a queue-backed Dispatcher. The pool must point at
// a database with the River schema applied.
func NewQueueDispatcher(pool *pgxpool.Pool, repo domain.EventRepository, executor domain.DeliveryExecutor, logger *slog.Logger, opts ...Option) (*QueueDispatcher, error) {
	if pool == nil {
		return nil, errors.New("queue: pgx pool is required")
	}

	cfg := &config{maxWorkers: defaultMaxWorkers}
	for _, opt := range opts {
		opt(cfg)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &deliveryWorker{repo: repo, executor: executor, logger: logger})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.maxWorkers},
		},
		Workers: workers,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("queue: create client: %w", err)
	}

	return &QueueDispatcher{
		pool:   pool,
		client: client,
		logger: logger,
	}, nil
}

// EventScheduled inserts a delivery job scheduled at the event's timestamp.
// Editing or deleting the event later does not retract the job; the worker's
// reload plus the conditional done-transition keep a stale job harmless.
func (q *QueueDispatcher) EventScheduled(ctx context.Context, e *domain.Event) error {
	_, err := q.client.Insert(ctx, deliveryArgs{
		EventID:    e.ID,
		Recipients: e.RecipientAddresses(),
		Timestamp:  e.Timestamp,
	}, &river.InsertOpts{
		ScheduledAt: e.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("queue: enqueue delivery for event %s: %w", e.ID, err)
	}
	q.logger.InfoContext(ctx, "delivery job enqueued",
		"event_id", e.ID,
		"scheduled_at", e.Timestamp,
	)
	return nil
}

// Start begins processing due jobs.
func (q *QueueDispatcher) Start(ctx context.Context) error {
	if err := q.client.Start(ctx); err != nil {
		return fmt.Errorf("queue: start client: %w", err)
	}
	q.logger.Info("queue dispatcher started")
	return nil
}

// Stop shuts the client down, waiting for in-flight jobs or ctx.
func (q *QueueDispatcher) Stop(ctx context.Context) error {
	if err := q.client.Stop(ctx); err != nil {
		return fmt.Errorf("queue: stop client: %w", err)
	}
	q.logger.Info("queue dispatcher stopped")
	return nil
}
