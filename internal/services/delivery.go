package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mailscheduler/internal/domain"
)

type deliveryExecutor struct {
	repo   domain.EventRepository
	mailer domain.Mailer
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*eventLock
}

type eventLock struct {
	mu   sync.Mutex
	refs int
}

// NewDeliveryExecutor returns a DeliveryExecutor that composes and sends the
// event's message and transitions the event to done exactly once. Concurrent
// attempts on the same event id are serialized in-process; the repository's
// conditional done-update guards against attempts from other processes.
func NewDeliveryExecutor(repo domain.EventRepository, mailer domain.Mailer, logger *slog.Logger) domain.DeliveryExecutor {
	return &deliveryExecutor{
		repo:   repo,
		mailer: mailer,
		logger: logger,
		locks:  make(map[string]*eventLock),
	}
}

// Deliver performs one delivery attempt for the event. Outcomes:
//   - OutcomeAlreadyDone: the event was completed before this attempt; no-op.
//   - OutcomeNoRecipients: nothing to send; the event is marked done so the
//     poll strategy never reprocesses it.
//   - OutcomeSent: the transport accepted the message and the event is done.
//
// ErrNotFound means the event id does not exist and is not retryable. A
// transport failure leaves the event pending for the next poll pass.
func (d *deliveryExecutor) Deliver(ctx context.Context, eventID string) (*domain.DeliveryResult, error) {
	unlock := d.lock(eventID)
	defer unlock()

	event, err := d.repo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("event %s: %w", eventID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load event %s: %w", eventID, err)
	}

	if event.IsDone {
		return &domain.DeliveryResult{
			EventID: eventID,
			Outcome: domain.OutcomeAlreadyDone,
			DoneAt:  event.DoneAt,
		}, nil
	}

	if len(event.Recipients) == 0 {
		doneAt, err := d.markDone(ctx, eventID)
		if err != nil {
			return nil, err
		}
		d.logger.WarnContext(ctx, "event has no recipients, marked done without sending", "event_id", eventID)
		return &domain.DeliveryResult{
			EventID: eventID,
			Outcome: domain.OutcomeNoRecipients,
			DoneAt:  doneAt,
		}, nil
	}

	msg := &domain.MailMessage{
		Subject: event.Subject,
		Body:    event.Content,
		HTML:    domain.IsMarkup(event.Content),
		To:      event.RecipientAddresses(),
	}
	if err := d.mailer.Send(ctx, msg); err != nil {
		// Still pending; the next poll pass retries.
		return nil, fmt.Errorf("send mail for event %s: %w", eventID, err)
	}

	doneAt, err := d.markDone(ctx, eventID)
	if err != nil {
		// Sent but the done-transition failed; surfaced so the caller can see
		// the store is out of step with the transport.
		return nil, err
	}
	d.logger.InfoContext(ctx, "event delivered",
		"event_id", eventID,
		"recipients", len(event.Recipients),
		"html", msg.HTML,
		"done_at", doneAt,
	)
	return &domain.DeliveryResult{
		EventID: eventID,
		Outcome: domain.OutcomeSent,
		DoneAt:  doneAt,
	}, nil
}

// markDone runs the conditional pending-to-done update. Losing the update to a
// concurrent attempt from another process maps to the stored done_at.
func (d *deliveryExecutor) markDone(ctx context.Context, eventID string) (*time.Time, error) {
	doneAt := time.Now().UTC()
	err := d.repo.MarkDone(ctx, eventID, doneAt)
	if err == nil {
		return &doneAt, nil
	}
	if errors.Is(err, domain.ErrAlreadyDone) {
		event, getErr := d.repo.GetByID(ctx, eventID)
		if getErr == nil {
			return event.DoneAt, nil
		}
		return nil, nil
	}
	return nil, fmt.Errorf("mark event %s done: %w", eventID, err)
}

// lock acquires the per-event mutex, creating it on first use and dropping it
// once no attempt holds or waits on it.
func (d *deliveryExecutor) lock(eventID string) func() {
	d.mu.Lock()
	l, ok := d.locks[eventID]
	if !ok {
		l = &eventLock{}
		d.locks[eventID] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, eventID)
		}
		d.mu.Unlock()
	}
}
