// Package synth generates synthetic crossing logs with planted co-travelers
// for demos and load tests.
package synth

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
	"github.com/ShahinHasanov90/TAGS-Matching/pkg/logger"
)

const (
	minTripDays = 1
	maxTripDays = 4
)

// Planted is a co-traveler deliberately placed next to a primary trip.
type Planted struct {
	Dataset    string `json:"dataset" yaml:"dataset"`
	Primary    string `json:"primary" yaml:"primary"`
	Companion  string `json:"companion" yaml:"companion"`
	Checkpoint string `json:"checkpoint" yaml:"checkpoint"`
	EntryGap   int    `json:"entry_gap" yaml:"entry_gap"`
	ExitGap    int    `json:"exit_gap" yaml:"exit_gap"`
}

// Set is one generated primary log with its comparison datasets.
type Set struct {
	Primary     []model.EventRecord
	Comparisons []model.Dataset
	Planted     []Planted
}

type trip struct {
	person     string
	checkpoint string
	entry      time.Time
	exit       time.Time
}

type generator struct {
	cfg Config
	rng *rand.Rand
}

// Generate builds a Set. The same Config always yields the same Set.
func Generate(ctx context.Context, cfg Config) (Set, error) {
	if err := cfg.Validate(); err != nil {
		return Set{}, err
	}
	g := &generator{cfg: cfg, rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))}

	var set Set
	var trips []trip
	for range cfg.PrimaryPersons {
		person := g.personID("P")
		for range cfg.Trips {
			t := g.randomTrip(person)
			trips = append(trips, t)
			set.Primary = append(set.Primary, t.records()...)
		}
	}
	sortRecords(set.Primary)

	for i := range cfg.Comparisons {
		if err := ctx.Err(); err != nil {
			return Set{}, fmt.Errorf("generation cancelled: %w", err)
		}
		name := fmt.Sprintf("comparison_%02d.csv", i+1)
		var recs []model.EventRecord
		for range cfg.Background {
			recs = append(recs, g.randomTrip(g.personID("B")).records()...)
		}
		for range cfg.Companions {
			base := trips[g.rng.IntN(len(trips))]
			companion := g.personID("C")
			entryGap, exitGap := g.gap(), g.gap()
			planted := trip{
				person:     companion,
				checkpoint: base.checkpoint,
				entry:      base.entry.Add(time.Duration(entryGap) * time.Minute),
				exit:       base.exit.Add(time.Duration(exitGap) * time.Minute),
			}
			recs = append(recs, planted.records()...)
			set.Planted = append(set.Planted, Planted{
				Dataset:    name,
				Primary:    base.person,
				Companion:  companion,
				Checkpoint: base.checkpoint,
				EntryGap:   abs(entryGap),
				ExitGap:    abs(exitGap),
			})
		}
		sortRecords(recs)
		set.Comparisons = append(set.Comparisons, model.NewDataset(name, recs))
	}

	logger.Named("synth").Info(ctx, "generated crossing logs",
		logger.Int("primary_records", len(set.Primary)),
		logger.Int("comparisons", len(set.Comparisons)),
		logger.Int("planted", len(set.Planted)),
	)
	return set, nil
}

// personID returns a reproducible identifier drawn from the generator.
func (g *generator) personID(prefix string) string {
	id, err := uuid.NewRandomFromReader(rngReader{g.rng})
	if err != nil {
		return fmt.Sprintf("%s-%016x", prefix, g.rng.Uint64())
	}
	return prefix + "-" + id.String()[:8]
}

func (g *generator) randomTrip(person string) trip {
	minute := g.rng.IntN(g.cfg.Days * 24 * 60)
	entry := g.cfg.Start.Add(time.Duration(minute) * time.Minute)
	days := minTripDays + g.rng.IntN(maxTripDays-minTripDays+1)
	exit := entry.Add(time.Duration(days)*24*time.Hour + time.Duration(g.rng.IntN(12*60))*time.Minute)
	return trip{
		person:     person,
		checkpoint: g.cfg.Checkpoints[g.rng.IntN(len(g.cfg.Checkpoints))],
		entry:      entry,
		exit:       exit,
	}
}

// gap returns a signed offset of at most MaxGapMinutes.
func (g *generator) gap() int {
	if g.cfg.MaxGapMinutes == 0 {
		return 0
	}
	return g.rng.IntN(2*g.cfg.MaxGapMinutes+1) - g.cfg.MaxGapMinutes
}

func (t trip) records() []model.EventRecord {
	return []model.EventRecord{
		{PersonID: t.person, Timestamp: t.entry, Direction: model.Entry, Checkpoint: t.checkpoint},
		{PersonID: t.person, Timestamp: t.exit, Direction: model.Exit, Checkpoint: t.checkpoint},
	}
}

func sortRecords(recs []model.EventRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Timestamp.Before(recs[j].Timestamp)
	})
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// rngReader adapts a rand.Rand to io.Reader for uuid generation.
type rngReader struct{ r *rand.Rand }

func (rr rngReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(rr.r.Uint32())
	}
	return len(p), nil
}
