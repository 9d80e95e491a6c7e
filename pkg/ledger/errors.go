package ledger

import "errors"

var (
	// ErrVersionConflict indicates a concurrent writer claimed the expected
	// version first. Append retries internally; callers see it only when
	// retries are exhausted.
	ErrVersionConflict = errors.New("ledger version conflict")

	// ErrUnknownEventType indicates a payload could not be matched to a
	// registered event type.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrNilPayload indicates Append was called without a payload.
	ErrNilPayload = errors.New("nil event payload")
)
