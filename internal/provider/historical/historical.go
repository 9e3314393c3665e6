// Package historical loads the bulk historical results export: the match
// results table plus the shootouts and goalscorers event tables that enrich
// it. Each table is a CSV file named results, shootouts or goalscorers, with
// or without a .csv suffix.
package historical

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/albapepper/scoracle-matches/internal/artifact"
	"github.com/albapepper/scoracle-matches/internal/provider"
)

// ErrMissingInput is returned when a required export table is absent.
var ErrMissingInput = errors.New("missing input")

// ErrSchema is returned when an export table lacks a required column.
var ErrSchema = errors.New("historical export schema")

// Table base names.
const (
	ResultsTable     = "results"
	ShootoutsTable   = "shootouts"
	GoalscorersTable = "goalscorers"
)

// Result is one row of the results table.
type Result struct {
	Date        provider.Date
	HomeTeam    string
	AwayTeam    string
	HomeScore   *int
	AwayScore   *int
	Tournament  string
	City        string
	Country     string
	Neutral     provider.TriState
	OutcomeCode *int
}

// Shootout is one row of the shootouts table.
type Shootout struct {
	Date     provider.Date
	HomeTeam string
	AwayTeam string
	Winner   string
}

// Goal is one row of the goalscorers table.
type Goal struct {
	Date     provider.Date
	HomeTeam string
	AwayTeam string
	Team     string
	Scorer   string
	Penalty  bool
	OwnGoal  bool
}

// Stats counts values that were loaded but could not be interpreted.
type Stats struct {
	Rows             int
	UnknownDates     int
	NullScores       int
	AmbiguousNeutral int
}

// Export is the full historical input of a run.
type Export struct {
	Results     []Result
	Shootouts   []Shootout
	Goals       []Goal
	ResultStats Stats
}

// Locate returns the path of table base under dir, trying base.csv first.
func Locate(dir, base string) (string, error) {
	for _, p := range []string{filepath.Join(dir, base+".csv"), filepath.Join(dir, base)} {
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("%w: neither %s.csv nor %s in %s", ErrMissingInput, base, base, dir)
}

// Load reads all three tables from dir. Every table is required.
func Load(dir string) (*Export, error) {
	results, stats, err := LoadResults(dir)
	if err != nil {
		return nil, err
	}
	shootouts, err := LoadShootouts(dir)
	if err != nil {
		return nil, err
	}
	goals, err := LoadGoalscorers(dir)
	if err != nil {
		return nil, err
	}
	return &Export{Results: results, Shootouts: shootouts, Goals: goals, ResultStats: stats}, nil
}

func readTable(dir, base string, required ...string) (*artifact.Table, error) {
	path, err := Locate(dir, base)
	if err != nil {
		return nil, err
	}
	t, err := artifact.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	if missing := t.Missing(required...); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s lacks columns %v", ErrSchema, path, missing)
	}
	return t, nil
}

// LoadResults reads the results table. Unparseable dates become the unknown
// date and unparseable scores become null; neither drops the row.
func LoadResults(dir string) ([]Result, Stats, error) {
	t, err := readTable(dir, ResultsTable, "date", "home_team", "away_team", "home_score", "away_score")
	if err != nil {
		return nil, Stats{}, err
	}

	out := make([]Result, 0, t.Len())
	stats := Stats{Rows: t.Len()}
	for i := 0; i < t.Len(); i++ {
		r := Result{
			Date:       provider.ParseDate(t.Get(i, "date")),
			HomeTeam:   strings.TrimSpace(t.Get(i, "home_team")),
			AwayTeam:   strings.TrimSpace(t.Get(i, "away_team")),
			HomeScore:  parseScore(t.Get(i, "home_score")),
			AwayScore:  parseScore(t.Get(i, "away_score")),
			Tournament: strings.TrimSpace(t.Get(i, "tournament")),
			City:       strings.TrimSpace(t.Get(i, "city")),
			Country:    strings.TrimSpace(t.Get(i, "country")),
		}
		if !r.Date.Known() {
			stats.UnknownDates++
		}
		if r.HomeScore == nil || r.AwayScore == nil {
			stats.NullScores++
		}

		neutral, ok := provider.ParseTriState(t.Get(i, "neutral"))
		if !ok && t.Has("neutral") {
			stats.AmbiguousNeutral++
		}
		r.Neutral = neutral

		if t.Has("match_outcome") {
			if n, ok := provider.ExtractInt(strings.TrimSpace(t.Get(i, "match_outcome"))); ok {
				r.OutcomeCode = provider.IntPtr(n)
			}
		}
		out = append(out, r)
	}
	return out, stats, nil
}

// LoadShootouts reads the shootouts table. An empty winner is kept as "".
func LoadShootouts(dir string) ([]Shootout, error) {
	t, err := readTable(dir, ShootoutsTable, "date", "home_team", "away_team")
	if err != nil {
		return nil, err
	}
	out := make([]Shootout, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, Shootout{
			Date:     provider.ParseDate(t.Get(i, "date")),
			HomeTeam: strings.TrimSpace(t.Get(i, "home_team")),
			AwayTeam: strings.TrimSpace(t.Get(i, "away_team")),
			Winner:   nullString(t.Get(i, "winner")),
		})
	}
	return out, nil
}

// LoadGoalscorers reads the goalscorers table.
func LoadGoalscorers(dir string) ([]Goal, error) {
	t, err := readTable(dir, GoalscorersTable, "date", "home_team", "away_team")
	if err != nil {
		return nil, err
	}
	out := make([]Goal, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, Goal{
			Date:     provider.ParseDate(t.Get(i, "date")),
			HomeTeam: strings.TrimSpace(t.Get(i, "home_team")),
			AwayTeam: strings.TrimSpace(t.Get(i, "away_team")),
			Team:     strings.TrimSpace(t.Get(i, "team")),
			Scorer:   nullString(t.Get(i, "scorer")),
			Penalty:  ParseFlag(t.Get(i, "penalty")),
			OwnGoal:  ParseFlag(t.Get(i, "own_goal")),
		})
	}
	return out, nil
}

// ParseFlag is true for "true", "1" and "yes" in any case.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func parseScore(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return provider.ExtractScore(s)
}

// nullString trims s and maps the usual null spellings to "".
func nullString(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "na", "null", "none":
		return ""
	}
	return s
}
