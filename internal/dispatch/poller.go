// Package dispatch contains the polling dispatch strategy: a periodic sweep
// that finds due, still-pending events and hands each one to the delivery
// executor. It needs no job-queue collaborator; punctuality is bounded by the
// poll interval and a missed pass simply catches up on the next run.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"mailscheduler/internal/domain"
)

// PollDispatcher runs a dispatch pass on a fixed cron schedule.
type PollDispatcher struct {
	repo     domain.EventRepository
	executor domain.DeliveryExecutor
	logger   *slog.Logger
	schedule string
	cron     *cron.Cron
}

// NewPollDispatcher returns a poll-based Dispatcher. schedule is a cron spec
// accepted by robfig/cron, e.g. "@every 1m".
func NewPollDispatcher(repo domain.EventRepository, executor domain.DeliveryExecutor, logger *slog.Logger, schedule string) *PollDispatcher {
	return &PollDispatcher{
		repo:     repo,
		executor: executor,
		logger:   logger,
		schedule: schedule,
	}
}

// EventScheduled is a no-op: the next poll pass picks the event up once due.
func (p *PollDispatcher) EventScheduled(ctx context.Context, e *domain.Event) error {
	return nil
}

// Start begins the periodic sweep. Passes are wrapped with SkipIfStillRunning
// so two overlapping passes never select the same event concurrently.
func (p *PollDispatcher) Start(ctx context.Context) error {
	if p.cron != nil {
		return errors.New("poll dispatcher already started")
	}
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(&cronLogger{p.logger}),
	))
	_, err := c.AddFunc(p.schedule, func() {
		if _, err := p.RunPass(context.Background()); err != nil {
			p.logger.Error("dispatch pass failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid poll schedule %q: %w", p.schedule, err)
	}
	c.Start()
	p.cron = c
	p.logger.Info("poll dispatcher started", "schedule", p.schedule)
	return nil
}

// Stop halts the schedule and waits for a running pass to finish, or for ctx.
func (p *PollDispatcher) Stop(ctx context.Context) error {
	if p.cron == nil {
		return nil
	}
	stopped := p.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	p.cron = nil
	p.logger.Info("poll dispatcher stopped")
	return nil
}

// RunPass executes one sweep: every pending event due as of now gets one
// delivery attempt. A failing event is logged and skipped so it cannot abort
// the rest of the pass; it stays pending and is retried on the next one.
// Returns the number of events that reached a terminal outcome this pass.
func (p *PollDispatcher) RunPass(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	due, err := p.repo.FindDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find due events: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	p.logger.Info("dispatch pass", "due", len(due), "as_of", now)
	processed := 0
	for _, event := range due {
		res, err := p.executor.Deliver(ctx, event.ID)
		if err != nil {
			p.logger.Error("delivery attempt failed",
				"event_id", event.ID,
				"err", err,
			)
			continue
		}
		p.logger.Info("delivery attempt finished",
			"event_id", event.ID,
			"outcome", res.Outcome,
		)
		processed++
	}
	return processed, nil
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"err", err}, keysAndValues...)...)
}
