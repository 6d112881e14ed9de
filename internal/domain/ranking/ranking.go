// Package ranking orders matches so that the most connected persons and the
// tightest time gaps come first.
package ranking

import (
	"sort"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
)

// Rank returns a new slice ordered by descending combined frequency of the
// pair's persons within items, then by ascending RankMinutes. Ties keep their
// input order. items is not modified.
func Rank[M model.Match](items []M) []M {
	out := make([]M, len(items))
	copy(out, items)
	if len(out) < 2 {
		return out
	}

	freq := Frequencies(items)
	score := make([]int, len(out))
	for i, m := range out {
		a, b := m.Pair()
		score[i] = freq[a] + freq[b]
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		x, y := idx[i], idx[j]
		if score[x] != score[y] {
			return score[x] > score[y]
		}
		return out[x].RankMinutes() < out[y].RankMinutes()
	})

	sorted := make([]M, len(out))
	for i, k := range idx {
		sorted[i] = out[k]
	}
	return sorted
}

// Frequencies counts in how many items each person appears as PersonA or
// PersonB.
func Frequencies[M model.Match](items []M) map[string]int {
	freq := make(map[string]int)
	for _, m := range items {
		a, b := m.Pair()
		freq[a]++
		freq[b]++
	}
	return freq
}

// RankCorrelations ranks an entry or exit bucket.
func RankCorrelations(items []model.Correlation) []model.Correlation {
	return Rank(items)
}

// RankCompleteMatches ranks the complete bucket on entry minutes.
func RankCompleteMatches(items []model.CompleteMatch) []model.CompleteMatch {
	return Rank(items)
}

// RankResultSet ranks every bucket of rs.
func RankResultSet(rs model.ResultSet) model.ResultSet {
	rs.Entry = RankCorrelations(rs.Entry)
	rs.Exit = RankCorrelations(rs.Exit)
	rs.Complete = RankCompleteMatches(rs.Complete)
	return rs
}
