package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
)

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(d, hh, mm int) time.Time {
	return day.AddDate(0, 0, d).Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

func rec(person string, ts time.Time, dir model.Direction, cp string) model.EventRecord {
	return model.EventRecord{PersonID: person, Timestamp: ts, Direction: dir, Checkpoint: cp}
}

// primaryLog: A enters X on 01-01 10:00 and leaves on 01-02 18:00.
func primaryLog() []model.EventRecord {
	return []model.EventRecord{
		rec("A", at(0, 10, 0), model.Entry, "X"),
		rec("A", at(1, 18, 0), model.Exit, "X"),
	}
}

// travelerB follows A both ways. travelerC only enters with A, once at X
// and once at Y.
func travelerB() model.Source {
	return model.NewDataset("b.csv", []model.EventRecord{
		rec("B", at(0, 10, 20), model.Entry, "X"),
		rec("B", at(1, 18, 5), model.Exit, "X"),
	})
}

func travelerC() model.Source {
	return model.NewDataset("c.csv", []model.EventRecord{
		rec("C", at(0, 9, 58), model.Entry, "X"),
		rec("C", at(0, 9, 59), model.Entry, "Y"),
	})
}

var errUnreadable = errors.New("unreadable file")

type brokenSource struct{ name string }

func (s brokenSource) Name() string { return s.name }

func (s brokenSource) Records(context.Context) ([]model.EventRecord, error) {
	return nil, errUnreadable
}

type panickingSource struct{}

func (panickingSource) Name() string { return "panic.csv" }

func (panickingSource) Records(context.Context) ([]model.EventRecord, error) {
	panic("corrupt row")
}

// blockingSource blocks until its context is done.
type blockingSource struct {
	name    string
	once    sync.Once
	started chan struct{}
}

func newBlockingSource(name string) *blockingSource {
	return &blockingSource{name: name, started: make(chan struct{})}
}

func (s *blockingSource) Name() string { return s.name }

func (s *blockingSource) Records(ctx context.Context) ([]model.EventRecord, error) {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

// gateSource blocks until release is closed, whatever its context.
type gateSource struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newGateSource() *gateSource {
	return &gateSource{started: make(chan struct{}), release: make(chan struct{})}
}

func (s *gateSource) Name() string { return "gate.csv" }

func (s *gateSource) Records(context.Context) ([]model.EventRecord, error) {
	s.once.Do(func() { close(s.started) })
	<-s.release
	return nil, nil
}
