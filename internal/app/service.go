// Package service runs analyses and keeps the latest results for the HTTP
// API and the CLI.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/filter"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/network"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/stats"
	"github.com/ShahinHasanov90/TAGS-Matching/pkg/logger"
	"github.com/ShahinHasanov90/TAGS-Matching/pkg/metrics"
)

// stopTimeout bounds how long Stop waits for the workers of a cancelled run.
const stopTimeout = 5 * time.Second

// Snapshot is the outcome of one completed run.
type Snapshot struct {
	Results  model.ResultSet        `json:"results" yaml:"results"`
	Failures []model.PerFileFailure `json:"failures" yaml:"failures"`
}

// Service holds the latest snapshot. At most one run is in flight: starting
// a run cancels the previous one.
type Service struct {
	analyzer *Analyzer
	logger   logger.Logger
	now      func() time.Time

	mu     sync.RWMutex
	latest *Snapshot

	runMu  sync.Mutex
	cancel context.CancelCauseFunc
	seq    uint64
	stored uint64

	runs       int64
	superseded int64
	failed     int64
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithAnalyzer sets the analyzer used by Run.
func WithAnalyzer(a *Analyzer) Option {
	return func(s *Service) {
		if a != nil {
			s.analyzer = a
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used as the default Now of queries.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service.
func New(opts ...Option) *Service {
	s := &Service{
		logger: logger.Named("service"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.analyzer == nil {
		s.analyzer = NewAnalyzer(WithAnalyzerLogger(s.logger.Named("analyzer")))
	}
	return s
}

// Run cancels any run still in flight, analyses the inputs and replaces the
// latest snapshot. A run that is cancelled leaves the previous snapshot in
// place; if a newer run cancelled it, ErrSuperseded is returned.
func (s *Service) Run(
	ctx context.Context,
	primary []model.EventRecord,
	comparisons []model.Source,
	maxMinutes int,
) (Snapshot, error) {
	runCtx, cancel := context.WithCancelCause(ctx)
	seq := s.begin(cancel)
	defer s.end(seq, cancel)

	rs, failures, err := s.analyzer.Analyze(runCtx, primary, comparisons, maxMinutes)
	snap := Snapshot{Results: rs, Failures: failures}
	if err != nil {
		s.mu.Lock()
		if errors.Is(context.Cause(runCtx), ErrSuperseded) {
			s.superseded++
			err = ErrSuperseded
		} else {
			s.failed++
		}
		s.mu.Unlock()
		if errors.Is(err, ErrSuperseded) {
			s.logger.Info(ctx, "analysis superseded", logger.String("run_id", rs.RunID))
		}
		return snap, err
	}

	s.mu.Lock()
	s.runs++
	if seq > s.stored {
		s.stored = seq
		s.latest = &snap
		for _, c := range model.Categories {
			metrics.UpdateLatestResults(c.String(), rs.Len(c))
		}
	}
	s.mu.Unlock()
	return snap, nil
}

func (s *Service) begin(cancel context.CancelCauseFunc) uint64 {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel != nil {
		s.cancel(ErrSuperseded)
	}
	s.seq++
	s.cancel = cancel
	return s.seq
}

func (s *Service) end(seq uint64, cancel context.CancelCauseFunc) {
	s.runMu.Lock()
	if s.seq == seq {
		s.cancel = nil
	}
	s.runMu.Unlock()
	cancel(nil)
}

// Stop cancels the run in flight, if any, and waits for its workers to
// return. The wait ends after stopTimeout or when ctx is done.
func (s *Service) Stop(ctx context.Context) error {
	s.runMu.Lock()
	if s.cancel != nil {
		s.cancel(context.Canceled)
		s.cancel = nil
	}
	s.runMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	return s.analyzer.Shutdown(ctx)
}

// Latest returns the latest snapshot.
func (s *Service) Latest() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Snapshot{}, ErrNoResults
	}
	return *s.latest, nil
}

// Query returns the matches of one bucket of the latest snapshot selected
// by q and ranked from scratch.
func (s *Service) Query(c model.Category, q filter.Query) ([]model.Match, error) {
	snap, err := s.Latest()
	if err != nil {
		return nil, err
	}
	if q.Now.IsZero() {
		q.Now = s.now()
	}
	switch c {
	case model.CategoryEntry:
		return toMatches(filter.Apply(snap.Results.Entry, q)), nil
	case model.CategoryExit:
		return toMatches(filter.Apply(snap.Results.Exit, q)), nil
	case model.CategoryComplete:
		return toMatches(filter.Apply(snap.Results.Complete, q)), nil
	default:
		return nil, model.ErrUnknownCategory
	}
}

func toMatches[M model.Match](items []M) []model.Match {
	out := make([]model.Match, len(items))
	for i, m := range items {
		out[i] = m
	}
	return out
}

// Summary aggregates the latest snapshot.
func (s *Service) Summary() (stats.Summary, error) {
	snap, err := s.Latest()
	if err != nil {
		return stats.Summary{}, err
	}
	return stats.Summarize(snap.Results), nil
}

// Network builds the association graph of the latest snapshot.
func (s *Service) Network(ctx context.Context) (network.Network, error) {
	snap, err := s.Latest()
	if err != nil {
		return network.Network{}, err
	}
	return network.Build(ctx, snap.Results)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := map[string]any{
		"workers":     s.analyzer.Workers(),
		"runs":        s.runs,
		"superseded":  s.superseded,
		"failed":      s.failed,
		"has_results": s.latest != nil,
	}
	if s.latest != nil {
		rs := s.latest.Results
		st["last_run_id"] = rs.RunID
		st["last_run_at"] = rs.CreatedAt
		st["max_minutes"] = rs.MaxMinutes
		st["entry"] = len(rs.Entry)
		st["exit"] = len(rs.Exit)
		st["complete"] = len(rs.Complete)
		st["file_failures"] = len(s.latest.Failures)
	}
	return st
}
