package apifootball

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/albapepper/scoracle-matches/internal/provider"
)

// Fixture is one live API fixture, reduced to the fields the curated table
// needs. Goals are nil for unplayed or unresolved fixtures.
type Fixture struct {
	FixtureID int
	Date      provider.Date
	HomeTeam  string
	AwayTeam  string
	HomeGoals *int
	AwayGoals *int
	League    string
	LeagueID  *int
	Season    *int
}

// Exclusion reasons for malformed payload entries.
const (
	ExcludeMalformed   = "malformed_entry"
	ExcludeNoFixtureID = "missing_fixture_id"
	ExcludeNoDate      = "missing_fixture_date"
	ExcludeNoHomeTeam  = "missing_home_team"
	ExcludeNoAwayTeam  = "missing_away_team"
)

// SourceRef identifies the payload a batch came from.
type SourceRef struct {
	LeagueID int
	Season   int
	Path     string
}

func (r SourceRef) String() string {
	return fmt.Sprintf("league=%d season=%d file=%s", r.LeagueID, r.Season, r.Path)
}

// Batch is the parsed content of one payload.
type Batch struct {
	Ref      SourceRef
	Fixtures []Fixture
	Excluded map[string]int
}

// ExcludedCount returns the number of entries dropped from the batch.
func (b Batch) ExcludedCount() int {
	n := 0
	for _, c := range b.Excluded {
		n += c
	}
	return n
}

// payload is the /fixtures response envelope.
type payload struct {
	Results  interface{}       `json:"results"`
	Paging   json.RawMessage   `json:"paging"`
	Response []json.RawMessage `json:"response"`
}

type teamRef struct {
	Name *string `json:"name"`
}

type teamsRef struct {
	Home *teamRef `json:"home"`
	Away *teamRef `json:"away"`
}

// fixtureEntry mirrors the subset of a response item that is read. Pointers
// distinguish absent objects from zero values.
type fixtureEntry struct {
	Fixture *struct {
		ID   interface{} `json:"id"`
		Date *string     `json:"date"`
	} `json:"fixture"`
	Teams *teamsRef `json:"teams"`
	Goals *struct {
		Home interface{} `json:"home"`
		Away interface{} `json:"away"`
	} `json:"goals"`
	League *struct {
		ID     interface{} `json:"id"`
		Name   *string     `json:"name"`
		Season interface{} `json:"season"`
	} `json:"league"`
}

// ParsePayload parses one raw /fixtures payload. A body that is not a JSON
// payload is an error naming ref; malformed entries are excluded and counted.
func ParsePayload(body []byte, ref SourceRef) (Batch, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Batch{}, fmt.Errorf("parse fixtures payload (%s): %w", ref, err)
	}

	batch := Batch{Ref: ref, Excluded: map[string]int{}}
	for _, raw := range p.Response {
		f, reason, ok := parseEntry(raw)
		if !ok {
			batch.Excluded[reason]++
			continue
		}
		batch.Fixtures = append(batch.Fixtures, f)
	}
	return batch, nil
}

// ResponseCount returns the length of the response list of a payload, or 0
// when it cannot be decoded.
func ResponseCount(body []byte) int {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return 0
	}
	return len(p.Response)
}

func parseEntry(raw json.RawMessage) (Fixture, string, bool) {
	var e fixtureEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Fixture{}, ExcludeMalformed, false
	}
	if e.Fixture == nil {
		return Fixture{}, ExcludeNoFixtureID, false
	}
	id, ok := provider.ExtractInt(e.Fixture.ID)
	if !ok {
		return Fixture{}, ExcludeNoFixtureID, false
	}
	if e.Fixture.Date == nil || strings.TrimSpace(*e.Fixture.Date) == "" {
		return Fixture{}, ExcludeNoDate, false
	}
	home, ok := teamName(e.Teams, true)
	if !ok {
		return Fixture{}, ExcludeNoHomeTeam, false
	}
	away, ok := teamName(e.Teams, false)
	if !ok {
		return Fixture{}, ExcludeNoAwayTeam, false
	}

	f := Fixture{
		FixtureID: id,
		Date:      provider.ParseDate(*e.Fixture.Date),
		HomeTeam:  home,
		AwayTeam:  away,
	}
	if e.Goals != nil {
		f.HomeGoals = provider.ExtractScore(e.Goals.Home)
		f.AwayGoals = provider.ExtractScore(e.Goals.Away)
	}
	if e.League != nil {
		if e.League.Name != nil {
			f.League = strings.TrimSpace(*e.League.Name)
		}
		if n, ok := provider.ExtractInt(e.League.ID); ok {
			f.LeagueID = provider.IntPtr(n)
		}
		if n, ok := provider.ExtractInt(e.League.Season); ok {
			f.Season = provider.IntPtr(n)
		}
	}
	return f, "", true
}

func teamName(teams *teamsRef, home bool) (string, bool) {
	if teams == nil {
		return "", false
	}
	ref := teams.Away
	if home {
		ref = teams.Home
	}
	if ref == nil || ref.Name == nil || strings.TrimSpace(*ref.Name) == "" {
		return "", false
	}
	return *ref.Name, true
}
