package ranking

import (
	"sort"

	"github.com/albapepper/scoracle-matches/internal/provider"
)

// Validation summarizes the position coverage of a scraped ranking.
type Validation struct {
	Total           int     `json:"total"`
	MinPosition     int     `json:"min_position"`
	MaxPosition     int     `json:"max_position"`
	UniquePositions int     `json:"unique_positions"`
	MinPoints       float64 `json:"min_points"`
	MaxPoints       float64 `json:"max_points"`

	MaxExpected int   `json:"max_expected"`
	Missing     []int `json:"missing_positions,omitempty"`
	Duplicated  []int `json:"duplicated_positions,omitempty"`

	// Contiguous is true when every position in 1..MaxPosition is present.
	Contiguous bool `json:"contiguous"`
}

// OK reports whether the ranking is complete and free of duplicates.
func (v Validation) OK() bool {
	return v.Total > 0 && v.Contiguous && len(v.Missing) == 0 && len(v.Duplicated) == 0
}

// Validate checks entries against the expected range 1..maxExpected.
func Validate(entries []provider.RankingEntry, maxExpected int) Validation {
	v := Validation{Total: len(entries), MaxExpected: maxExpected}

	counts := map[int]int{}
	for i, e := range entries {
		counts[e.Position]++
		if i == 0 {
			v.MinPosition, v.MaxPosition = e.Position, e.Position
			v.MinPoints, v.MaxPoints = e.Points, e.Points
			continue
		}
		v.MinPosition = min(v.MinPosition, e.Position)
		v.MaxPosition = max(v.MaxPosition, e.Position)
		v.MinPoints = min(v.MinPoints, e.Points)
		v.MaxPoints = max(v.MaxPoints, e.Points)
	}
	v.UniquePositions = len(counts)

	for p := 1; p <= maxExpected; p++ {
		if counts[p] == 0 {
			v.Missing = append(v.Missing, p)
		}
	}
	for p, n := range counts {
		if n > 1 {
			v.Duplicated = append(v.Duplicated, p)
		}
	}
	sort.Ints(v.Duplicated)

	v.Contiguous = v.Total > 0
	for p := 1; p <= v.MaxPosition && v.Contiguous; p++ {
		if counts[p] == 0 {
			v.Contiguous = false
		}
	}
	return v
}
