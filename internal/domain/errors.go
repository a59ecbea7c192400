package domain

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when submitted data fails validation.
	// Wrap it with context: fmt.Errorf("%w: subject is required", ErrValidation).
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTimestamp is returned when a timestamp string cannot be parsed.
	// Unparsable input is rejected rather than defaulted to now, so a bad
	// timestamp can never schedule mail immediately.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrInvalidRecipient is returned when a recipient segment is not a valid address.
	ErrInvalidRecipient = errors.New("invalid recipient address")

	// ErrAlreadyDone is returned by the conditional done-transition when the
	// event was already completed. Benign for callers racing on delivery.
	ErrAlreadyDone = errors.New("event already done")

	// ErrEventDone is returned when an edit is attempted on a completed event.
	ErrEventDone = errors.New("event is done and can no longer be modified")
)
