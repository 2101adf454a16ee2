package engagement

import "errors"

// Expected failure conditions. Callers match these with errors.Is; everything
// else coming out of the engine is an internal storage fault wrapped around
// ErrStorageUnavailable.
var (
	// ErrInvalidEventType means the caller supplied an event type the catalog
	// does not know and no explicit amount.
	ErrInvalidEventType = errors.New("invalid event type")

	// ErrInvalidAmount means the caller supplied a negative explicit amount,
	// or both an event type and an amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrStorageUnavailable means the store could not be reached or a
	// transaction could not commit within its retry budget. No partial state
	// is left behind.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrConflict marks a lost compare-and-swap race inside a transaction
	// attempt. It is retried internally and only ever surfaces wrapped in
	// ErrStorageUnavailable once the retry budget is exhausted.
	ErrConflict = errors.New("concurrent conflict")
)
