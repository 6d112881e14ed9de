// Package model contains domain models passed between layers.
package model

import (
	"context"
	"time"
)

// Layouts used when rendering dates and clock times in results.
const (
	DateLayout  = "02.01.2006"
	ClockLayout = "15:04"
)

// EventRecord is one border crossing.
type EventRecord struct {
	PersonID   string    `json:"person_id" validate:"required"`
	Timestamp  time.Time `json:"timestamp" validate:"required"`
	Direction  Direction `json:"direction" validate:"required,direction"`
	Checkpoint string    `json:"checkpoint" validate:"required"`
}

// Source yields the records of one comparison dataset. Loading may be
// deferred until Records is called.
type Source interface {
	Name() string
	Records(ctx context.Context) ([]EventRecord, error)
}

// Dataset is an already loaded, named set of records.
type Dataset struct {
	Label string
	Items []EventRecord
}

// NewDataset returns a Dataset wrapping records.
func NewDataset(name string, records []EventRecord) Dataset {
	return Dataset{Label: name, Items: records}
}

// Name implements Source.
func (d Dataset) Name() string { return d.Label }

// Records implements Source.
func (d Dataset) Records(ctx context.Context) ([]EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.Items, nil
}
