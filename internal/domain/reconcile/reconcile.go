// Package reconcile joins entry and exit correlations of the same pair into
// complete round-trip matches.
package reconcile

import (
	"context"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/dedupe"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
)

type pairKey struct {
	a, b, checkpoint string
}

// Reconcile returns a CompleteMatch for every entry/exit pair with the same
// PersonA, PersonB and checkpoint where the exit starts strictly after the
// entry. Only the first match per (PersonA, PersonB, entry date, exit date)
// is kept; entries are visited in order and exits in order within each entry.
func Reconcile(entries, exits []model.Correlation) []model.CompleteMatch {
	if len(entries) == 0 || len(exits) == 0 {
		return nil
	}

	byPair := make(map[pairKey][]model.Correlation, len(exits))
	for _, x := range exits {
		k := pairKey{x.PersonA, x.PersonB, x.Checkpoint}
		byPair[k] = append(byPair[k], x)
	}

	seen := dedupe.NewInMemoryDeduper()
	ctx := context.Background()

	var out []model.CompleteMatch
	for _, e := range entries {
		for _, x := range byPair[pairKey{e.PersonA, e.PersonB, e.Checkpoint}] {
			if !x.Start().After(e.Start()) {
				continue
			}
			key := dedupe.Key(
				e.PersonA,
				e.PersonB,
				e.Date.Format(model.DateLayout),
				x.Date.Format(model.DateLayout),
			)
			if seen.SeenAndRecord(ctx, key) {
				continue
			}
			out = append(out, model.CompleteMatch{
				PersonA:           e.PersonA,
				PersonB:           e.PersonB,
				Checkpoint:        e.Checkpoint,
				EntryDate:         e.Date,
				ExitDate:          x.Date,
				EntryWindow:       e.TimeWindow(),
				ExitWindow:        x.TimeWindow(),
				EntryMinutesApart: e.MinutesApart,
				ExitMinutesApart:  x.MinutesApart,
			})
		}
	}
	return out
}
