package domain

import (
	"context"
	"time"
)

// Event is a scheduled email send request. Timestamp, CreatedAt and DoneAt are
// stored as naive UTC: time.Time values in the UTC location with no separate
// zone column, so stored instants compare directly.
type Event struct {
	ID         string       `json:"id"`
	Subject    string       `json:"subject"`
	Content    string       `json:"content"`
	Timestamp  time.Time    `json:"timestamp"`
	CreatedAt  time.Time    `json:"created_at"`
	IsDone     bool         `json:"is_done"`
	DoneAt     *time.Time   `json:"done_at,omitempty"`
	OwnerID    string       `json:"owner_id,omitempty"`
	Recipients []*Recipient `json:"recipients,omitempty"`
}

// NewEvent returns a pending Event. ID is set by the repository on create.
func NewEvent(subject, content string, timestamp time.Time, ownerID string, recipients []*Recipient) *Event {
	return &Event{
		Subject:    subject,
		Content:    content,
		Timestamp:  timestamp,
		CreatedAt:  time.Now().UTC(),
		OwnerID:    ownerID,
		Recipients: recipients,
	}
}

// RecipientAddresses returns the formatted address of every recipient, in order.
func (e *Event) RecipientAddresses() []string {
	addrs := make([]string, 0, len(e.Recipients))
	for _, r := range e.Recipients {
		addrs = append(addrs, r.Address())
	}
	return addrs
}

// EventRepository defines the interface for event storage. An Event owns its
// Recipients: Create and Update persist both atomically, Delete cascades.
type EventRepository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context) ([]*Event, error)
	ListByOwnerID(ctx context.Context, ownerID string) ([]*Event, error)
	// FindDue returns pending events with Timestamp <= asOf, earliest first.
	FindDue(ctx context.Context, asOf time.Time) ([]*Event, error)
	// MarkDone sets is_done and done_at in one conditional update. It returns
	// ErrAlreadyDone if the event was completed before, leaving the original
	// done_at untouched, and ErrNotFound if the event does not exist.
	MarkDone(ctx context.Context, id string, doneAt time.Time) error
	// Update replaces subject, content, timestamp and the recipient set of a
	// pending event. Returns ErrEventDone for completed events.
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id string) error
}

// Dispatcher decides when a pending event's delivery attempt is triggered.
// Implementations: a periodic poll over FindDue, and a delayed-job queue that
// runs the attempt at the event's timestamp. Regardless of strategy, delivery
// succeeds at most once per event.
type Dispatcher interface {
	// EventScheduled is invoked after an event is persisted.
	EventScheduled(ctx context.Context, e *Event) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// DeliveryOutcome classifies how a delivery attempt finished.
type DeliveryOutcome string

const (
	// OutcomeSent means the mail was handed to the transport and the event
	// transitioned to done.
	OutcomeSent DeliveryOutcome = "sent"
	// OutcomeAlreadyDone means another attempt completed the event first.
	OutcomeAlreadyDone DeliveryOutcome = "already_done"
	// OutcomeNoRecipients means the event had no recipients and was marked
	// done without contacting the transport.
	OutcomeNoRecipients DeliveryOutcome = "no_recipients"
)

// DeliveryResult reports the outcome of one delivery attempt.
type DeliveryResult struct {
	EventID string          `json:"event_id"`
	Outcome DeliveryOutcome `json:"outcome"`
	DoneAt  *time.Time      `json:"done_at,omitempty"`
}

// DeliveryExecutor performs one delivery attempt for an event.
type DeliveryExecutor interface {
	Deliver(ctx context.Context, eventID string) (*DeliveryResult, error)
}

// ScheduleRequest is the submission payload for a new or edited event.
// Timestamp and Recipients arrive raw and are normalized by the service.
type ScheduleRequest struct {
	Subject    string
	Content    string
	Timestamp  string
	Recipients string
	OwnerID    string
}

// ScheduleService defines the contract for managing scheduled email events.
type ScheduleService interface {
	Schedule(ctx context.Context, req *ScheduleRequest) (*Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context, ownerID string) ([]*Event, error)
	UpdateEvent(ctx context.Context, id string, req *ScheduleRequest) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// TokenVerifier verifies a bearer token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (string, error)
}
