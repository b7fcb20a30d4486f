package app

import (
	"errors"
	"fmt"
)

// ValidationError rejects a client action with a user-facing message
// (capacity, wager/time-control/round-count bounds, malformed game code,
// already-full game).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports a game id with no persisted snapshot.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// StoreError wraps a failure reading or writing a snapshot. When raised after
// a critical state change it may not target any single connection.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// UserMessage returns the message to surface to the originating connection
// and whether the error is user-facing at all. Delivery failures never reach
// here; settlement failures are deliberately not translated.
func UserMessage(err error) (string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Msg, true
	}
	var nfe *NotFoundError
	if errors.As(err, &nfe) {
		return nfe.Msg, true
	}
	var se *StoreError
	if errors.As(err, &se) {
		return "temporary storage error, please retry", true
	}
	return "", false
}
