package service

import "errors"

var (
	// ErrInvalidMaxMinutes is returned when the tolerance is outside the
	// accepted range. The value is never clamped.
	ErrInvalidMaxMinutes = errors.New("invalid max minutes")
	// ErrTooManySources is returned when a run has more comparison datasets
	// than the analyzer accepts.
	ErrTooManySources = errors.New("too many comparison datasets")
	// ErrSuperseded is returned by Service.Run when a newer run cancelled it.
	ErrSuperseded = errors.New("analysis superseded by a newer run")
	// ErrNoResults is returned when no analysis has completed yet.
	ErrNoResults = errors.New("no analysis results")
)
