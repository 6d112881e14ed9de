// Package stats summarises a result set for dashboards and reports.
package stats

import (
	"sort"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/ranking"
)

// Severity levels derived from a minute gap.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// DefaultTopPersons is the number of persons listed in a Summary.
const DefaultTopPersons = 10

// Severity classifies a minute gap: low up to 15, medium up to 30.
func Severity(minutes int) string {
	switch {
	case minutes <= 15:
		return SeverityLow
	case minutes <= 30:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// Counts holds the number of results per bucket.
type Counts struct {
	Entry    int `json:"entry" yaml:"entry"`
	Exit     int `json:"exit" yaml:"exit"`
	Complete int `json:"complete" yaml:"complete"`
	Total    int `json:"total" yaml:"total"`
}

// NamedCount is a label with its number of occurrences.
type NamedCount struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// Summary aggregates a ResultSet.
type Summary struct {
	RunID          string         `json:"run_id" yaml:"run_id"`
	MaxMinutes     int            `json:"max_minutes" yaml:"max_minutes"`
	Counts         Counts         `json:"counts" yaml:"counts"`
	Checkpoints    []NamedCount   `json:"checkpoints" yaml:"checkpoints"`
	Histogram      []NamedCount   `json:"histogram" yaml:"histogram"`
	Severity       map[string]int `json:"severity" yaml:"severity"`
	AverageMinutes float64        `json:"average_minutes" yaml:"average_minutes"`
	TopPersons     []NamedCount   `json:"top_persons" yaml:"top_persons"`
}

type bucket struct {
	label string
	upper int // inclusive; -1 for the open-ended bucket
}

var buckets = []bucket{
	{"0-5", 5},
	{"6-10", 10},
	{"11-15", 15},
	{"16-20", 20},
	{"21-25", 25},
	{"26-30", 30},
	{"30+", -1},
}

// BucketLabel returns the histogram bucket for a minute gap.
func BucketLabel(minutes int) string {
	for _, b := range buckets {
		if b.upper < 0 || minutes <= b.upper {
			return b.label
		}
	}
	return buckets[len(buckets)-1].label
}

// Summarize aggregates every bucket of rs. Complete matches contribute their
// entry minutes.
func Summarize(rs model.ResultSet) Summary {
	s := Summary{
		RunID:      rs.RunID,
		MaxMinutes: rs.MaxMinutes,
		Counts: Counts{
			Entry:    len(rs.Entry),
			Exit:     len(rs.Exit),
			Complete: len(rs.Complete),
			Total:    rs.Total(),
		},
		Severity: map[string]int{SeverityLow: 0, SeverityMedium: 0, SeverityHigh: 0},
	}

	var all []model.Match
	for _, c := range model.Categories {
		all = append(all, rs.Matches(c)...)
	}

	checkpoints := make(map[string]int)
	hist := make(map[string]int, len(buckets))
	sum := 0
	for _, m := range all {
		checkpoints[m.CheckpointID()]++
		mins := m.RankMinutes()
		hist[BucketLabel(mins)]++
		s.Severity[Severity(mins)]++
		sum += mins
	}
	if len(all) > 0 {
		s.AverageMinutes = float64(sum) / float64(len(all))
	}

	s.Checkpoints = sortedCounts(checkpoints, 0)
	s.Histogram = make([]NamedCount, 0, len(buckets))
	for _, b := range buckets {
		s.Histogram = append(s.Histogram, NamedCount{Name: b.label, Count: hist[b.label]})
	}
	s.TopPersons = sortedCounts(ranking.Frequencies(all), DefaultTopPersons)
	return s
}

// sortedCounts orders by descending count then name; limit <= 0 keeps all.
func sortedCounts(m map[string]int, limit int) []NamedCount {
	out := make([]NamedCount, 0, len(m))
	for k, v := range m {
		out = append(out, NamedCount{Name: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
