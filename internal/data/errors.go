package data

import "errors"

// Sentinel errors surfaced by the stores and the message router. Callers are
// expected to test them with errors.Is and map them to transport-level
// responses; anything else is treated as a transient store failure.
var (
	ErrUserExists      = errors.New("user already exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotParticipant  = errors.New("not a participant of this message")
	ErrEmptyMessage    = errors.New("message needs text or an image")
)
