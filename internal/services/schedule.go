package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mailscheduler/internal/domain"
)

type scheduleService struct {
	repo           domain.EventRepository
	dispatcher     domain.Dispatcher
	logger         *slog.Logger
	localZone      *time.Location
	contextTimeout time.Duration
}

// NewScheduleService returns a ScheduleService that validates submissions,
// normalizes timestamps to UTC in the given local zone, persists events and
// notifies the dispatcher. Pass time.Local as localZone unless the server
// zone is overridden in config.
func NewScheduleService(
	repo domain.EventRepository,
	dispatcher domain.Dispatcher,
	logger *slog.Logger,
	localZone *time.Location,
	timeout time.Duration,
) domain.ScheduleService {
	if localZone == nil {
		localZone = time.Local
	}
	return &scheduleService{
		repo:           repo,
		dispatcher:     dispatcher,
		logger:         logger,
		localZone:      localZone,
		contextTimeout: timeout,
	}
}

// Schedule validates and persists a new event. Nothing is written unless every
// required field passes validation, and the event plus its recipients commit
// together; the dispatcher is only notified after the commit.
func (s *scheduleService) Schedule(ctx context.Context, req *domain.ScheduleRequest) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	timestamp, recipients, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	event := domain.NewEvent(req.Subject, req.Content, timestamp, req.OwnerID, recipients)
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	if err := s.dispatcher.EventScheduled(ctx, event); err != nil {
		// The event is persisted either way; a poll pass can still pick it up.
		return event, fmt.Errorf("schedule dispatch for event %s: %w", event.ID, err)
	}

	s.logger.InfoContext(ctx, "event scheduled",
		"event_id", event.ID,
		"timestamp", event.Timestamp,
		"recipients", len(event.Recipients),
	)
	return event, nil
}

func (s *scheduleService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.repo.GetByID(ctx, id)
}

// ListEvents returns the owner's events, or every event when ownerID is empty.
func (s *scheduleService) ListEvents(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	if ownerID != "" {
		return s.repo.ListByOwnerID(ctx, ownerID)
	}
	return s.repo.List(ctx)
}

// UpdateEvent edits a pending event. Done events are immutable; the repository
// enforces the gate and ErrEventDone surfaces to the caller. A delayed job
// already enqueued for the old timestamp is not retracted; the delivery
// executor's done re-check keeps a stale job from sending twice.
func (s *scheduleService) UpdateEvent(ctx context.Context, id string, req *domain.ScheduleRequest) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	timestamp, recipients, err := s.normalize(req)
	if err != nil {
		return nil, err
	}

	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event.IsDone {
		return nil, domain.ErrEventDone
	}

	event.Subject = req.Subject
	event.Content = req.Content
	event.Timestamp = timestamp
	event.Recipients = recipients
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, err
	}

	if err := s.dispatcher.EventScheduled(ctx, event); err != nil {
		return event, fmt.Errorf("schedule dispatch for event %s: %w", event.ID, err)
	}
	return event, nil
}

// DeleteEvent removes the event and its recipients. An already-enqueued
// delayed job is not cancelled; it will find the event gone and stop there.
func (s *scheduleService) DeleteEvent(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.repo.Delete(ctx, id)
}

// normalize rejects missing fields before any persistence and converts the raw
// timestamp and recipient strings to their canonical forms.
func (s *scheduleService) normalize(req *domain.ScheduleRequest) (time.Time, []*domain.Recipient, error) {
	if req.Subject == "" {
		return time.Time{}, nil, fmt.Errorf("%w: subject is required", domain.ErrValidation)
	}
	if req.Content == "" {
		return time.Time{}, nil, fmt.Errorf("%w: content is required", domain.ErrValidation)
	}
	if req.Timestamp == "" {
		return time.Time{}, nil, fmt.Errorf("%w: timestamp is required", domain.ErrValidation)
	}
	if req.Recipients == "" {
		return time.Time{}, nil, fmt.Errorf("%w: recipients are required", domain.ErrValidation)
	}

	timestamp, err := domain.ParseTimestamp(req.Timestamp, s.localZone)
	if err != nil {
		return time.Time{}, nil, err
	}
	recipients, err := domain.ParseRecipients(req.Recipients)
	if err != nil {
		return time.Time{}, nil, err
	}
	if len(recipients) == 0 {
		return time.Time{}, nil, fmt.Errorf("%w: at least one recipient is required", domain.ErrValidation)
	}
	return timestamp, recipients, nil
}
