// Package correlate finds same-direction crossings of distinct persons that
// happen within a time tolerance of each other.
package correlate

import (
	"math"
	"sort"
	"time"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
)

// Below maxWindowMinutes the search window fits in a time.Duration. From it
// upwards every candidate is scanned.
const maxWindowMinutes = math.MaxInt64/int64(time.Minute) - 1

// indexed is a comparison record together with its position in the input.
type indexed struct {
	idx int
	rec model.EventRecord
}

// Correlate returns every pairing of a primary record with a comparison
// record of direction dir whose persons differ and whose timestamps are at
// most maxMinutes whole minutes apart. Output is ordered by primary record,
// then by comparison record, both in input order. maxMinutes <= 0 yields nil.
func Correlate(primary, comparison []model.EventRecord, dir model.Direction, maxMinutes int) []model.Correlation {
	if maxMinutes <= 0 {
		return nil
	}

	cands := make([]indexed, 0, len(comparison))
	for i, r := range comparison {
		if r.Direction == dir {
			cands = append(cands, indexed{idx: i, rec: r})
		}
	}
	if len(cands) == 0 {
		return nil
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].rec.Timestamp.Before(cands[j].rec.Timestamp)
	})

	// One extra minute on each side; the exact truncated check follows.
	bounded := int64(maxMinutes) < maxWindowMinutes
	var slack time.Duration
	if bounded {
		slack = time.Duration(maxMinutes+1) * time.Minute
	}

	var (
		out  []model.Correlation
		hits []indexed
	)
	for _, p := range primary {
		if p.Direction != dir {
			continue
		}
		start, end := 0, len(cands)
		if bounded {
			lo := p.Timestamp.Add(-slack)
			hi := p.Timestamp.Add(slack)
			start = sort.Search(len(cands), func(i int) bool {
				return !cands[i].rec.Timestamp.Before(lo)
			})
			end = sort.Search(len(cands), func(i int) bool {
				return cands[i].rec.Timestamp.After(hi)
			})
		}
		hits = hits[:0]
		for i := start; i < end; i++ {
			c := cands[i]
			if c.rec.PersonID == p.PersonID {
				continue
			}
			if MinutesApart(p.Timestamp, c.rec.Timestamp) <= maxMinutes {
				hits = append(hits, c)
			}
		}
		sort.Slice(hits, func(i, j int) bool { return hits[i].idx < hits[j].idx })
		for _, h := range hits {
			out = append(out, newCorrelation(p, h.rec, dir))
		}
	}
	return out
}

// BruteForce is the all-pairs reference for Correlate. It produces the same
// output in the same order.
func BruteForce(primary, comparison []model.EventRecord, dir model.Direction, maxMinutes int) []model.Correlation {
	if maxMinutes <= 0 {
		return nil
	}
	var out []model.Correlation
	for _, p := range primary {
		if p.Direction != dir {
			continue
		}
		for _, c := range comparison {
			if c.Direction != dir || c.PersonID == p.PersonID {
				continue
			}
			if MinutesApart(p.Timestamp, c.Timestamp) <= maxMinutes {
				out = append(out, newCorrelation(p, c, dir))
			}
		}
	}
	return out
}

// MinutesApart returns the absolute distance between a and b in whole
// minutes, truncated.
func MinutesApart(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d / time.Minute)
}

func newCorrelation(p, c model.EventRecord, dir model.Direction) model.Correlation {
	y, m, d := p.Timestamp.Date()
	return model.Correlation{
		PersonA:      p.PersonID,
		PersonB:      c.PersonID,
		Date:         time.Date(y, m, d, 0, 0, 0, 0, p.Timestamp.Location()),
		TimeA:        p.Timestamp,
		TimeB:        c.Timestamp,
		MinutesApart: MinutesApart(p.Timestamp, c.Timestamp),
		Checkpoint:   p.Checkpoint,
		Direction:    dir,
	}
}
