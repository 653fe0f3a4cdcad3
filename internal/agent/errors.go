package agent

import "errors"

var (
	// ErrInvalidResume is returned when a caller supplies a resume answer
	// that does not match the session's pending escalation.
	ErrInvalidResume = errors.New("resume input does not match pending escalation")

	// ErrEmptyInput is returned when a turn carries no user text.
	ErrEmptyInput = errors.New("turn input is empty")
)
