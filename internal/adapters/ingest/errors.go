package ingest

import "errors"

var (
	// ErrMissingColumns is returned when a required column is absent.
	ErrMissingColumns = errors.New("missing required columns")
	// ErrInvalidRecord is returned when a row cannot be turned into a record.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrUnsupportedFormat is returned for file types other than CSV and JSON.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)
