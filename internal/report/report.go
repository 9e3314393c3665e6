// Package report accumulates the diagnostics of one curation run. A Report
// is created per run and passed explicitly to every stage; nothing is kept in
// package state, so runs and tests are isolated from each other.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/albapepper/scoracle-matches/internal/alias"
	"github.com/albapepper/scoracle-matches/internal/matchkey"
	"github.com/albapepper/scoracle-matches/internal/ranking"
)

// Severity grades a data-quality finding. Findings never abort a run.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Finding is one structured data-quality observation.
type Finding struct {
	Severity Severity `json:"severity"`
	Source   string   `json:"source"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Count    int      `json:"count,omitempty"`
}

// MatchRate is the fraction of rows that found a ranking on each side.
type MatchRate struct {
	Family string `json:"family"`
	Rows   int    `json:"rows"`
	Home   int    `json:"home_matched"`
	Away   int    `json:"away_matched"`
	Both   int    `json:"both_matched"`

	TopUnmatchedHome []alias.NameCount `json:"top_unmatched_home,omitempty"`
	TopUnmatchedAway []alias.NameCount `json:"top_unmatched_away,omitempty"`
}

func (m MatchRate) rate(n int) float64 {
	if m.Rows == 0 {
		return 0
	}
	return float64(n) / float64(m.Rows)
}

// HomeRate is the share of rows with a home ranking.
func (m MatchRate) HomeRate() float64 { return m.rate(m.Home) }

// AwayRate is the share of rows with an away ranking.
func (m MatchRate) AwayRate() float64 { return m.rate(m.Away) }

// BothRate is the share of rows with both rankings.
func (m MatchRate) BothRate() float64 { return m.rate(m.Both) }

// AliasUsage summarizes name resolution for one family.
type AliasUsage struct {
	Family   string            `json:"family"`
	Lookups  int               `json:"lookups"`
	Mapped   int               `json:"mapped"`
	Unmapped []alias.NameCount `json:"unmapped,omitempty"`
}

// Report is the diagnostics accumulator for one run.
type Report struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`

	Rows       map[string]int            `json:"rows"`
	Exclusions map[string]map[string]int `json:"exclusions,omitempty"`
	Findings   []Finding                 `json:"findings,omitempty"`

	Ranking     *ranking.Validation    `json:"ranking_validation,omitempty"`
	Dedup       []matchkey.DedupReport `json:"dedup,omitempty"`
	MatchRates  []MatchRate            `json:"match_rates,omitempty"`
	AliasUsage  []AliasUsage           `json:"alias_usage,omitempty"`
	Unresolved  []matchkey.Collision   `json:"unresolved_duplicates,omitempty"`
	AbsentGoals int                    `json:"matches_without_goal_events"`

	Errors []string `json:"errors,omitempty"`
}

// New creates an empty report for a run.
func New(runID string, startedAt time.Time) *Report {
	return &Report{
		RunID:      runID,
		StartedAt:  startedAt,
		Rows:       map[string]int{},
		Exclusions: map[string]map[string]int{},
	}
}

// SetRows records the row count of a named table.
func (r *Report) SetRows(table string, n int) {
	r.Rows[table] = n
}

// Exclude counts n rows dropped from source for reason.
func (r *Report) Exclude(source, reason string, n int) {
	if n <= 0 {
		return
	}
	bySource, ok := r.Exclusions[source]
	if !ok {
		bySource = map[string]int{}
		r.Exclusions[source] = bySource
	}
	bySource[reason] += n
}

// Excluded returns the total rows excluded from source.
func (r *Report) Excluded(source string) int {
	n := 0
	for _, c := range r.Exclusions[source] {
		n += c
	}
	return n
}

// Add records a finding.
func (r *Report) Add(f Finding) {
	r.Findings = append(r.Findings, f)
}

// Warnf records a warning finding.
func (r *Report) Warnf(source, code string, count int, format string, args ...interface{}) {
	r.Add(Finding{Severity: SeverityWarning, Source: source, Code: code, Count: count, Message: fmt.Sprintf(format, args...)})
}

// Infof records an informational finding.
func (r *Report) Infof(source, code string, count int, format string, args ...interface{}) {
	r.Add(Finding{Severity: SeverityInfo, Source: source, Code: code, Count: count, Message: fmt.Sprintf(format, args...)})
}

// HasFinding reports whether a finding with code was recorded.
func (r *Report) HasFinding(code string) bool {
	for _, f := range r.Findings {
		if f.Code == code {
			return true
		}
	}
	return false
}

// AddDedup records a deduplication report and a finding if rows were dropped.
func (r *Report) AddDedup(d matchkey.DedupReport) {
	r.Dedup = append(r.Dedup, d)
	if n := d.DiscardedCount(); n > 0 {
		r.Warnf(d.Source, "duplicate_match_keys", n,
			"%d duplicate rows discarded across %d keys", n, len(d.Duplicates))
	}
	if d.Unjoinable > 0 {
		r.Warnf(d.Source, "unknown_date", d.Unjoinable,
			"%d rows with unknown date cannot be joined", d.Unjoinable)
	}
}

// AddMatchRate records a ranking join match rate.
func (r *Report) AddMatchRate(m MatchRate) {
	r.MatchRates = append(r.MatchRates, m)
}

// MatchRate returns the recorded match rate for family.
func (r *Report) MatchRate(family string) (MatchRate, bool) {
	for _, m := range r.MatchRates {
		if m.Family == family {
			return m, true
		}
	}
	return MatchRate{}, false
}

// SetRankingValidation records the ranking validation and its findings.
func (r *Report) SetRankingValidation(v ranking.Validation) {
	r.Ranking = &v
	if len(v.Missing) > 0 {
		r.Warnf("ranking", "missing_positions", len(v.Missing),
			"%d positions missing in 1..%d", len(v.Missing), v.MaxExpected)
	}
	if len(v.Duplicated) > 0 {
		r.Warnf("ranking", "duplicate_positions", len(v.Duplicated),
			"duplicated positions: %v", v.Duplicated)
	}
	if !v.Contiguous {
		r.Warnf("ranking", "position_gaps", 0,
			"positions are not contiguous in 1..%d", v.MaxPosition)
	}
}

// AddUnresolved records residual key collisions in the curated table.
func (r *Report) AddUnresolved(c []matchkey.Collision) {
	if len(c) == 0 {
		return
	}
	r.Unresolved = append(r.Unresolved, c...)
	r.Warnf("curated", "unresolved_duplicate", len(c),
		"%d match keys shared by more than one row", len(c))
}

// AddError records an error message.
func (r *Report) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddErrorf records a formatted error message.
func (r *Report) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable one-line summary of the run.
func (r *Report) Summary() string {
	tables := make([]string, 0, len(r.Rows))
	for name := range r.Rows {
		tables = append(tables, name)
	}
	sort.Strings(tables)

	var b strings.Builder
	for _, name := range tables {
		fmt.Fprintf(&b, "%s=%d ", name, r.Rows[name])
	}
	for _, m := range r.MatchRates {
		fmt.Fprintf(&b, "%s_match(home=%.2f%% away=%.2f%% both=%.2f%%) ",
			m.Family, 100*m.HomeRate(), 100*m.AwayRate(), 100*m.BothRate())
	}
	fmt.Fprintf(&b, "findings=%d unresolved=%d errors=%d", len(r.Findings), len(r.Unresolved), len(r.Errors))
	return b.String()
}
