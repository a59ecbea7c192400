package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mailscheduler/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

// NewEventRepository returns an EventRepository backed by postgres.
func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `id, subject, content, timestamp, created_at, is_done, done_at, owner_id`

// Create inserts the event and its recipients in one transaction. The event
// row goes first so recipients can reference the generated id; any failure
// rolls back both, so a half-committed event never exists.
func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO events (subject, content, timestamp, created_at, is_done, owner_id)
		VALUES ($1, $2, $3, $4, FALSE, $5)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, query,
		e.Subject, e.Content, e.Timestamp, e.CreatedAt, nullString(e.OwnerID),
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	if err := insertRecipients(ctx, tx, e.ID, e.Recipients); err != nil {
		return err
	}

	return tx.Commit()
}

func insertRecipients(ctx context.Context, tx *sql.Tx, eventID string, recipients []*domain.Recipient) error {
	query := `
		INSERT INTO recipients (email, name, event_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	for _, rec := range recipients {
		if err := tx.QueryRowContext(ctx, query, rec.Email, nullString(rec.Name), eventID).Scan(&rec.ID); err != nil {
			return fmt.Errorf("insert recipient %s: %w", rec.Email, err)
		}
		rec.EventID = eventID
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1
	`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadRecipients(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		ORDER BY created_at DESC
	`
	return r.queryEvents(ctx, query)
}

func (r *eventRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	return r.queryEvents(ctx, query, ownerID)
}

// FindDue returns pending events whose timestamp is at or before asOf,
// earliest-due first. Used by the polling dispatcher; a delayed or missed
// poll simply picks everything up on the next pass.
func (r *eventRepository) FindDue(ctx context.Context, asOf time.Time) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE timestamp <= $1 AND is_done = FALSE
		ORDER BY timestamp ASC
	`
	return r.queryEvents(ctx, query, asOf)
}

// MarkDone performs the pending-to-done transition as a single conditional
// update, so two racing delivery attempts cannot both win. A second call on a
// completed event returns ErrAlreadyDone and never overwrites done_at.
func (r *eventRepository) MarkDone(ctx context.Context, id string, doneAt time.Time) error {
	query := `
		UPDATE events
		SET is_done = TRUE, done_at = $2
		WHERE id = $1 AND is_done = FALSE
	`
	result, err := r.DB.ExecContext(ctx, query, id, doneAt)
	if err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	var isDone bool
	err = r.DB.QueryRowContext(ctx, `SELECT is_done FROM events WHERE id = $1`, id).Scan(&isDone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if isDone {
		return domain.ErrAlreadyDone
	}
	return fmt.Errorf("mark done: event %s not updated", id)
}

// Update replaces subject, content, timestamp and the recipient set of a
// pending event in one transaction. Completed events are immutable.
func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE events
		SET subject = $2, content = $3, timestamp = $4
		WHERE id = $1 AND is_done = FALSE
	`
	result, err := tx.ExecContext(ctx, query, e.ID, e.Subject, e.Content, e.Timestamp)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		var isDone bool
		err = tx.QueryRowContext(ctx, `SELECT is_done FROM events WHERE id = $1`, e.ID).Scan(&isDone)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		if isDone {
			return domain.ErrEventDone
		}
		return fmt.Errorf("update: event %s not updated", e.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM recipients WHERE event_id = $1`, e.ID); err != nil {
		return fmt.Errorf("delete recipients: %w", err)
	}
	if err := insertRecipients(ctx, tx, e.ID, e.Recipients); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes the event and all of its recipients. The recipients delete is
// explicit rather than relying on an ON DELETE CASCADE constraint.
func (r *eventRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recipients WHERE event_id = $1`, id); err != nil {
		return fmt.Errorf("delete recipients: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}

	return tx.Commit()
}

func (r *eventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, e := range events {
		if err := r.loadRecipients(ctx, e); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func (r *eventRepository) loadRecipients(ctx context.Context, e *domain.Event) error {
	query := `
		SELECT id, email, name, event_id
		FROM recipients
		WHERE event_id = $1
		ORDER BY id
	`
	rows, err := r.DB.QueryContext(ctx, query, e.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	recipients := make([]*domain.Recipient, 0)
	for rows.Next() {
		rec := &domain.Recipient{}
		var nameNull sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Email, &nameNull, &rec.EventID); err != nil {
			return err
		}
		if nameNull.Valid {
			rec.Name = nameNull.String
		}
		recipients = append(recipients, rec)
	}
	e.Recipients = recipients
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var doneAtNull sql.NullTime
	var ownerNull sql.NullString
	err := row.Scan(
		&e.ID, &e.Subject, &e.Content, &e.Timestamp, &e.CreatedAt,
		&e.IsDone, &doneAtNull, &ownerNull,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if doneAtNull.Valid {
		e.DoneAt = &doneAtNull.Time
	}
	if ownerNull.Valid {
		e.OwnerID = ownerNull.String
	}
	return e, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
