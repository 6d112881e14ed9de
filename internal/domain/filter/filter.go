// Package filter narrows a result bucket by free text, time gap band,
// checkpoint and recency, then re-ranks what is left.
package filter

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/ranking"
)

// dotAbove is left behind when "İ" is case folded; dropping it lets "İ",
// "I" and "i" match each other.
var dotAbove = strings.NewReplacer("\u0307", "")

// Band selects matches by their ranking minutes.
type Band string

const (
	BandAll    Band = "all"
	Band0to5   Band = "0-5"
	Band5to15  Band = "5-15"
	Band15Plus Band = "15+"
)

// ParseBand accepts "", "all", "0-5", "5-15" and "15+".
func ParseBand(s string) (Band, error) {
	switch b := Band(strings.TrimSpace(s)); b {
	case "":
		return BandAll, nil
	case BandAll, Band0to5, Band5to15, Band15Plus:
		return b, nil
	default:
		return "", fmt.Errorf("%w: band %q", ErrInvalidQuery, s)
	}
}

// Contains reports whether minutes fall inside the band.
func (b Band) Contains(minutes int) bool {
	switch b {
	case Band0to5:
		return minutes >= 0 && minutes <= 5
	case Band5to15:
		return minutes > 5 && minutes <= 15
	case Band15Plus:
		return minutes > 15
	default:
		return true
	}
}

// Recency selects matches by how many days ago they happened.
type Recency string

const (
	RecencyAll   Recency = "all"
	RecencyToday Recency = "today"
	Recency3d    Recency = "3d"
	Recency7d    Recency = "7d"
)

// ParseRecency accepts "", "all", "today", "3d" and "7d".
func ParseRecency(s string) (Recency, error) {
	switch r := Recency(strings.TrimSpace(strings.ToLower(s))); r {
	case "":
		return RecencyAll, nil
	case RecencyAll, RecencyToday, Recency3d, Recency7d:
		return r, nil
	default:
		return "", fmt.Errorf("%w: recency %q", ErrInvalidQuery, s)
	}
}

// Query describes a filtered view of one bucket. Zero values select
// everything; a zero Now means time.Now().
type Query struct {
	Text       string
	Band       Band
	Checkpoint string
	Recency    Recency
	Now        time.Time
}

// IsZero reports whether q selects every match.
func (q Query) IsZero() bool {
	return strings.TrimSpace(q.Text) == "" &&
		(q.Band == "" || q.Band == BandAll) &&
		q.Checkpoint == "" &&
		(q.Recency == "" || q.Recency == RecencyAll)
}

// Apply returns the items selected by q, ranked from scratch.
func Apply[M model.Match](items []M, q Query) []M {
	if q.Now.IsZero() {
		q.Now = time.Now()
	}
	fold := cases.Fold()
	text := foldText(fold, strings.TrimSpace(q.Text))

	kept := make([]M, 0, len(items))
	for _, m := range items {
		if q.Checkpoint != "" && m.CheckpointID() != q.Checkpoint {
			continue
		}
		if !q.Band.Contains(m.RankMinutes()) {
			continue
		}
		if !withinRecency(m.Day(), q.Now, q.Recency) {
			continue
		}
		if text != "" && !matchesText(fold, m, text) {
			continue
		}
		kept = append(kept, m)
	}
	return ranking.Rank(kept)
}

// DaysAgo returns the number of calendar days between day and now, in now's
// location. Future days are negative.
func DaysAgo(day, now time.Time) int {
	y, m, d := day.Date()
	dayMid := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	y, m, d = now.Date()
	nowMid := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return int(math.Round(nowMid.Sub(dayMid).Hours() / 24))
}

func withinRecency(day, now time.Time, r Recency) bool {
	switch r {
	case RecencyToday:
		return DaysAgo(day, now) == 0
	case Recency3d:
		return DaysAgo(day, now) <= 3
	case Recency7d:
		return DaysAgo(day, now) <= 7
	default:
		return true
	}
}

func foldText(fold cases.Caser, s string) string {
	return dotAbove.Replace(fold.String(s))
}

func matchesText(fold cases.Caser, m model.Match, text string) bool {
	for _, field := range searchable(m) {
		if strings.Contains(foldText(fold, field), text) {
			return true
		}
	}
	return false
}

func searchable(m model.Match) []string {
	a, b := m.Pair()
	fields := []string{a, b, m.CheckpointID(), m.Day().Format(model.DateLayout)}
	if cm, ok := m.(model.CompleteMatch); ok {
		fields = append(fields, cm.ExitDate.Format(model.DateLayout))
	}
	return fields
}
