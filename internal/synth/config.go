package synth

import (
	"fmt"
	"time"
)

// Config holds the shape of a synthetic crossing log set.
type Config struct {
	PrimaryPersons int       // persons in the primary log
	Trips          int       // entry/exit trips per primary person
	Comparisons    int       // number of comparison datasets
	Background     int       // unrelated persons per comparison dataset
	Companions     int       // planted co-travelers per comparison dataset
	Checkpoints    []string  // checkpoint names
	Start          time.Time // first day of the period
	Days           int       // length of the period in days
	MaxGapMinutes  int       // upper bound of planted gaps
	Seed           uint64    // seed of the pseudo-random source
}

// DefaultConfig returns a small but realistic configuration.
func DefaultConfig() Config {
	return Config{
		PrimaryPersons: 20,
		Trips:          2,
		Comparisons:    3,
		Background:     200,
		Companions:     5,
		Checkpoints:    []string{"Astara", "Samur", "Qırmızı Körpü", "Sınıq Körpü"},
		Start:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:           14,
		MaxGapMinutes:  25,
		Seed:           1,
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.PrimaryPersons < 1:
		return fmt.Errorf("%w: primary persons must be positive", ErrInvalidConfig)
	case c.Trips < 1:
		return fmt.Errorf("%w: trips must be positive", ErrInvalidConfig)
	case c.Comparisons < 1:
		return fmt.Errorf("%w: comparisons must be positive", ErrInvalidConfig)
	case c.Background < 0 || c.Companions < 0:
		return fmt.Errorf("%w: person counts must not be negative", ErrInvalidConfig)
	case len(c.Checkpoints) == 0:
		return fmt.Errorf("%w: at least one checkpoint is required", ErrInvalidConfig)
	case c.Days < 1:
		return fmt.Errorf("%w: days must be positive", ErrInvalidConfig)
	case c.MaxGapMinutes < 0:
		return fmt.Errorf("%w: max gap must not be negative", ErrInvalidConfig)
	}
	return nil
}
