package model

import "errors"

var (
	// ErrUnknownDirection is returned when a direction label cannot be parsed.
	ErrUnknownDirection = errors.New("unknown direction")
	// ErrUnknownCategory is returned when a result category cannot be parsed.
	ErrUnknownCategory = errors.New("unknown category")
)
