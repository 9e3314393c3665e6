// Package matchkey builds the composite identity of a match and removes
// duplicate enrichment rows that share it.
//
// The join key is the ordered triple (date, home, away). It is not
// symmetrized: the same two teams can meet twice on a date with the venue
// reversed.
package matchkey

import (
	"fmt"
	"sort"
	"strings"

	"github.com/albapepper/scoracle-matches/internal/provider"
)

// Key is the ordered (date, home, away) identity of a match.
type Key struct {
	Date provider.Date
	Home string
	Away string
}

// Build returns the key for a match. Team names must already be canonical.
func Build(date provider.Date, home, away string) Key {
	return Key{Date: date, Home: home, Away: away}
}

func (k Key) String() string {
	return k.Date.String() + "|" + k.Home + "|" + k.Away
}

// Joinable reports whether the key can take part in a join. Keys with an
// unknown date never match anything.
func (k Key) Joinable() bool {
	return k.Date.Known()
}

// --------------------------------------------------------------------------
// Published identity
// --------------------------------------------------------------------------

// Policy decides how the published match_key of a base row extends the
// triple. The triple alone is not unique in the historical export.
type Policy string

const (
	// PolicyRowIndex appends the row index. Always unique, never merges rows.
	PolicyRowIndex Policy = "row_index"
	// PolicyTournament appends the tournament, separating fixtures that
	// differ only by competition.
	PolicyTournament Policy = "tournament"
	// PolicyTriple publishes the bare triple; collisions are reported.
	PolicyTriple Policy = "triple"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.TrimSpace(s)); p {
	case PolicyRowIndex, PolicyTournament, PolicyTriple:
		return p, nil
	case "":
		return PolicyRowIndex, nil
	default:
		return "", fmt.Errorf("unknown match key policy %q", s)
	}
}

// Publish returns the match_key written to the curated table.
func Publish(k Key, policy Policy, source provider.Source, rowIndex int, tournament string) string {
	base := string(source) + ":" + k.String()
	switch policy {
	case PolicyTournament:
		return base + "|" + tournament
	case PolicyTriple:
		return base
	default:
		return fmt.Sprintf("%s|#%d", base, rowIndex)
	}
}

// --------------------------------------------------------------------------
// Deduplication
// --------------------------------------------------------------------------

// Duplicate describes the rows discarded for one key.
type Duplicate struct {
	Key       string `json:"key"`
	KeptRow   int    `json:"kept_row"`
	Discarded []int  `json:"discarded_rows"`
}

// DedupReport is the outcome of deduplicating one enrichment source.
type DedupReport struct {
	Source     string      `json:"source"`
	Input      int         `json:"input"`
	Kept       int         `json:"kept"`
	Unjoinable int         `json:"unjoinable"`
	Duplicates []Duplicate `json:"duplicates,omitempty"`
}

// DiscardedCount returns how many rows were dropped as duplicates.
func (r DedupReport) DiscardedCount() int {
	n := 0
	for _, d := range r.Duplicates {
		n += len(d.Discarded)
	}
	return n
}

// Keys returns the keys that had duplicates.
func (r DedupReport) Keys() []string {
	out := make([]string, len(r.Duplicates))
	for i, d := range r.Duplicates {
		out[i] = d.Key
	}
	return out
}

// Dedup keeps the first row seen for every key and records the rest. Rows
// whose key is not joinable are kept out of the index and counted.
func Dedup[T any](source string, rows []T, keyOf func(T) Key) (map[Key]T, DedupReport) {
	report := DedupReport{Source: source, Input: len(rows)}
	index := make(map[Key]T, len(rows))
	firstRow := make(map[Key]int, len(rows))
	dups := map[Key]*Duplicate{}
	var order []Key

	for i, row := range rows {
		k := keyOf(row)
		if !k.Joinable() {
			report.Unjoinable++
			continue
		}
		if _, seen := index[k]; seen {
			d, ok := dups[k]
			if !ok {
				d = &Duplicate{Key: k.String(), KeptRow: firstRow[k]}
				dups[k] = d
				order = append(order, k)
			}
			d.Discarded = append(d.Discarded, i)
			continue
		}
		index[k] = row
		firstRow[k] = i
	}

	report.Kept = len(index)
	for _, k := range order {
		report.Duplicates = append(report.Duplicates, *dups[k])
	}
	return index, report
}

// --------------------------------------------------------------------------
// Residual collisions
// --------------------------------------------------------------------------

// Collision is a published key shared by more than one curated row.
type Collision struct {
	Key  string `json:"key"`
	Rows []int  `json:"rows"`
}

// FindCollisions returns every key that appears more than once, in key order.
func FindCollisions(keys []string) []Collision {
	rows := map[string][]int{}
	for i, k := range keys {
		rows[k] = append(rows[k], i)
	}
	var out []Collision
	for k, r := range rows {
		if len(r) > 1 {
			out = append(out, Collision{Key: k, Rows: r})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
