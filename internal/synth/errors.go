package synth

import "errors"

// ErrInvalidConfig is returned when a generator setting is out of range.
var ErrInvalidConfig = errors.New("invalid generator config")
