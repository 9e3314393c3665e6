// Package provider defines canonical data types that all sources normalize
// into. These structs are the contract between source loaders and the merge
// engine: loaders output these, the engine enriches them, artifacts and the
// database write them.
//
// Adding a new source means implementing functions that return these types.
// The merge engine and the published schema never change.
package provider

import (
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Dates
// --------------------------------------------------------------------------

// UnknownDate is the serialized form of a date that could not be parsed.
const UnknownDate = "unknown_date"

const dateLayout = "2006-01-02"

// Date is a calendar date. The zero value is the unknown date. Date is
// comparable and safe to use inside map keys.
type Date struct {
	value string
}

// ParseDate accepts YYYY-MM-DD, RFC3339 timestamps and "YYYY-MM-DD hh:mm:ss".
// Anything else yields the unknown date; rows are never dropped for it.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if len(s) < len(dateLayout) {
		return Date{}
	}
	prefix := s[:len(dateLayout)]
	if len(s) > len(dateLayout) {
		sep := s[len(dateLayout)]
		if sep != 'T' && sep != ' ' {
			return Date{}
		}
	}
	t, err := time.Parse(dateLayout, prefix)
	if err != nil {
		return Date{}
	}
	return Date{value: t.Format(dateLayout)}
}

// DateOf returns the calendar date of t.
func DateOf(t time.Time) Date {
	return Date{value: t.Format(dateLayout)}
}

// Known reports whether the date was parsed successfully.
func (d Date) Known() bool { return d.value != "" }

func (d Date) String() string {
	if d.value == "" {
		return UnknownDate
	}
	return d.value
}

// Time returns midnight UTC of the date, ok=false for the unknown date.
func (d Date) Time() (time.Time, bool) {
	if d.value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, d.value)
	return t, err == nil
}

// --------------------------------------------------------------------------
// Enums
// --------------------------------------------------------------------------

// Source identifies which upstream a match row came from.
type Source string

const (
	SourceHistorical Source = "historical_export"
	SourceLive       Source = "live_api"
)

// Outcome is the derived result label of a match.
type Outcome string

const (
	OutcomeHomeWin      Outcome = "home_win"
	OutcomeDraw         Outcome = "draw"
	OutcomeAwayWin      Outcome = "away_win"
	OutcomeUndetermined Outcome = "undetermined"
)

// TriState is a boolean that can also be unknown.
type TriState int8

const (
	Unknown TriState = iota
	True
	False
)

// ParseTriState maps common boolean spellings; everything else is Unknown
// and ok is false so callers can count ambiguous values.
func ParseTriState(s string) (TriState, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "t":
		return True, true
	case "false", "0", "no", "n", "f":
		return False, true
	default:
		return Unknown, false
	}
}

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Match rows
// --------------------------------------------------------------------------

// GoalAggregate holds per-match goal-event counts. Present is false when the
// goal-event source has no rows for the match, which is distinct from a match
// with zero recorded events.
type GoalAggregate struct {
	Present   bool `json:"present"`
	Events    int  `json:"events"`
	Penalties int  `json:"penalties"`
	OwnGoals  int  `json:"own_goals"`
}

// RankSide is the ranking enrichment for one side of a match.
type RankSide struct {
	Position int     `json:"position"`
	Points   float64 `json:"points"`
}

// MatchRecord is one sporting fixture in the curated table.
type MatchRecord struct {
	RowIndex int    `json:"row_index"`
	Source   Source `json:"source"`
	MatchKey string `json:"match_key"`

	Date              Date   `json:"-"`
	HomeTeamRaw       string `json:"home_team_raw"`
	AwayTeamRaw       string `json:"away_team_raw"`
	HomeTeamCanonical string `json:"home_team_canonical"`
	AwayTeamCanonical string `json:"away_team_canonical"`

	HomeScore *int `json:"home_score"`
	AwayScore *int `json:"away_score"`

	Tournament   string   `json:"tournament,omitempty"`
	VenueCity    string   `json:"venue_city,omitempty"`
	VenueCountry string   `json:"venue_country,omitempty"`
	NeutralSite  TriState `json:"-"`

	// Provenance (live API only)
	FixtureID *int `json:"fixture_id,omitempty"`
	LeagueID  *int `json:"league_id,omitempty"`
	Season    *int `json:"season,omitempty"`

	// Enrichment from event-level sources
	HasShootout    bool          `json:"has_shootout"`
	ShootoutWinner string        `json:"shootout_winner,omitempty"`
	Goals          GoalAggregate `json:"goals"`

	// Enrichment from the ranking snapshot
	HomeRank       *RankSide `json:"home_rank,omitempty"`
	AwayRank       *RankSide `json:"away_rank,omitempty"`
	RankPointsDiff *float64  `json:"rank_points_diff"`

	// Outcome and derived features
	OutcomeCode  *int    `json:"outcome_code,omitempty"`
	Outcome      Outcome `json:"outcome"`
	TotalGoals   *int    `json:"total_goals"`
	GoalDiffHome *int    `json:"goal_diff_home"`
}

// --------------------------------------------------------------------------
// Rankings
// --------------------------------------------------------------------------

// UnknownPeriod is the period label used when a page does not expose one.
const UnknownPeriod = "unknown_period"

// RankingEntry is one row of a ranking table.
type RankingEntry struct {
	Position int     `json:"position"`
	Team     string  `json:"team"`
	Code     string  `json:"code,omitempty"`
	Points   float64 `json:"points"`
}

// RankingSnapshot is one observation of a ranking table for a period.
type RankingSnapshot struct {
	PeriodLabel string         `json:"period_label"`
	Entries     []RankingEntry `json:"entries"`
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 { return &f }
