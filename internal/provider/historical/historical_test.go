package historical

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-matches/internal/provider"
)

func writeTable(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "results", "date\n")
	writeTable(t, dir, "shootouts.csv", "date\n")

	p, err := Locate(dir, "results")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "results"), p)

	p, err = Locate(dir, "shootouts")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "shootouts.csv"), p)

	_, err = Locate(dir, "goalscorers")
	require.ErrorIs(t, err, ErrMissingInput)
}

func TestLoadResults(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "results.csv", `date,home_team,away_team,home_score,away_score,tournament,city,country,neutral
2023-01-01, Spain ,France,2,1,Friendly,Madrid,Spain,FALSE
2023-01-01,France,Spain,0,0,Friendly,Paris,France,True
not-a-date,Chile,Peru,,NA,Copa América,Lima,Peru,maybe
`)

	rows, stats, err := LoadResults(dir)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Spain", rows[0].HomeTeam)
	assert.Equal(t, provider.ParseDate("2023-01-01"), rows[0].Date)
	assert.Equal(t, 2, *rows[0].HomeScore)
	assert.Equal(t, provider.False, rows[0].Neutral)
	assert.Equal(t, provider.True, rows[1].Neutral)
	assert.Nil(t, rows[0].OutcomeCode)

	assert.False(t, rows[2].Date.Known())
	assert.Nil(t, rows[2].HomeScore)
	assert.Nil(t, rows[2].AwayScore)
	assert.Equal(t, provider.Unknown, rows[2].Neutral)

	assert.Equal(t, Stats{Rows: 3, UnknownDates: 1, NullScores: 1, AmbiguousNeutral: 1}, stats)
}

func TestLoadResults_ExplicitOutcome(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "results.csv", "date,home_team,away_team,home_score,away_score,match_outcome\n2023-01-01,A,B,3,1,-1\n2023-01-02,A,B,3,1,\n")
	rows, _, err := LoadResults(dir)
	require.NoError(t, err)
	require.NotNil(t, rows[0].OutcomeCode)
	assert.Equal(t, -1, *rows[0].OutcomeCode)
	assert.Nil(t, rows[1].OutcomeCode)
}

func TestLoadResults_SchemaError(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "results.csv", "date,home,away\n")
	_, _, err := LoadResults(dir)
	require.ErrorIs(t, err, ErrSchema)
}

func TestLoadEvents(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "shootouts.csv", "date,home_team,away_team,winner\n2022-12-18,Argentina,France,Argentina\n2022-12-09,Croatia,Brazil,nan\n")
	writeTable(t, dir, "goalscorers.csv", "date,home_team,away_team,team,scorer,minute,own_goal,penalty\n"+
		"2022-12-18,Argentina,France,Argentina,Lionel Messi,23,False,True\n"+
		"2022-12-18,Argentina,France,France,Kylian Mbappé,80,FALSE,yes\n"+
		"2022-12-18,Argentina,France,France,,,1,0\n")

	shootouts, err := LoadShootouts(dir)
	require.NoError(t, err)
	require.Len(t, shootouts, 2)
	assert.Equal(t, "Argentina", shootouts[0].Winner)
	assert.Equal(t, "", shootouts[1].Winner)

	goals, err := LoadGoalscorers(dir)
	require.NoError(t, err)
	require.Len(t, goals, 3)
	assert.True(t, goals[0].Penalty)
	assert.False(t, goals[0].OwnGoal)
	assert.True(t, goals[1].Penalty)
	assert.True(t, goals[2].OwnGoal)
	assert.Equal(t, "", goals[2].Scorer)

	writeTable(t, dir, "results.csv", "date,home_team,away_team,home_score,away_score\n2022-12-18,Argentina,France,3,3\n")
	export, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, export.Results, 1)
	assert.Len(t, export.Shootouts, 2)
	assert.Len(t, export.Goals, 3)
}

func TestParseFlag(t *testing.T) {
	for in, want := range map[string]bool{"True": true, " 1 ": true, "YES": true, "False": false, "0": false, "": false, "y": false} {
		assert.Equal(t, want, ParseFlag(in), "input %q", in)
	}
}
