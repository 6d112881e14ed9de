package model

import "time"

// ResultSet is the output of one analysis run. A new set is built for every
// run and replaces the previous one wholesale.
type ResultSet struct {
	RunID      string          `json:"run_id" yaml:"run_id"`
	CreatedAt  time.Time       `json:"created_at" yaml:"created_at"`
	MaxMinutes int             `json:"max_minutes" yaml:"max_minutes"`
	Entry      []Correlation   `json:"entry" yaml:"entry"`
	Exit       []Correlation   `json:"exit" yaml:"exit"`
	Complete   []CompleteMatch `json:"complete" yaml:"complete"`
}

// Len returns the number of results in a bucket.
func (r ResultSet) Len(c Category) int {
	switch c {
	case CategoryEntry:
		return len(r.Entry)
	case CategoryExit:
		return len(r.Exit)
	case CategoryComplete:
		return len(r.Complete)
	default:
		return 0
	}
}

// Total returns the number of results across all buckets.
func (r ResultSet) Total() int {
	return len(r.Entry) + len(r.Exit) + len(r.Complete)
}

// Matches returns the bucket as a slice of Match.
func (r ResultSet) Matches(c Category) []Match {
	var out []Match
	switch c {
	case CategoryEntry:
		out = make([]Match, 0, len(r.Entry))
		for _, m := range r.Entry {
			out = append(out, m)
		}
	case CategoryExit:
		out = make([]Match, 0, len(r.Exit))
		for _, m := range r.Exit {
			out = append(out, m)
		}
	case CategoryComplete:
		out = make([]Match, 0, len(r.Complete))
		for _, m := range r.Complete {
			out = append(out, m)
		}
	}
	return out
}

// PerFileFailure records a comparison dataset that could not be processed.
type PerFileFailure struct {
	File   string `json:"file" yaml:"file"`
	Reason string `json:"reason" yaml:"reason"`
}
