package filter

import "errors"

// ErrInvalidQuery is returned when a band or recency value is not recognised.
var ErrInvalidQuery = errors.New("invalid query")
