package apifootball

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-matches/internal/config"
	"github.com/albapepper/scoracle-matches/internal/provider"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const samplePayload = `{
  "get": "fixtures",
  "parameters": {"league": "10", "season": "2023"},
  "errors": [],
  "results": 4,
  "paging": {"current": 1, "total": 1},
  "response": [
    {
      "fixture": {"id": 1001, "date": "2023-03-24T19:45:00+00:00"},
      "league": {"id": 10, "name": "Friendlies", "season": 2023},
      "teams": {"home": {"name": "Spain"}, "away": {"name": "Norway"}},
      "goals": {"home": 3, "away": 0}
    },
    {
      "fixture": {"id": 1002, "date": "2024-11-19T20:00:00+00:00"},
      "league": {"id": 10, "name": "Friendlies", "season": 2024},
      "teams": {"home": {"name": "Curaçao"}, "away": {"name": "Haiti"}},
      "goals": {"home": null, "away": null}
    },
    {
      "fixture": {"id": 1003, "date": "2023-06-01T18:00:00+00:00"},
      "teams": {"home": {"name": "Chile"}},
      "goals": {"home": 1, "away": 1}
    },
    {
      "fixture": {"date": "2023-06-02T18:00:00+00:00"},
      "teams": {"home": {"name": "A"}, "away": {"name": "B"}}
    },
    "not an object"
  ]
}`

func TestParsePayload(t *testing.T) {
	b, err := ParsePayload([]byte(samplePayload), SourceRef{LeagueID: 10, Season: 2023, Path: "x.json"})
	require.NoError(t, err)

	require.Len(t, b.Fixtures, 2)
	f := b.Fixtures[0]
	assert.Equal(t, 1001, f.FixtureID)
	assert.Equal(t, provider.ParseDate("2023-03-24"), f.Date)
	assert.Equal(t, "Spain", f.HomeTeam)
	assert.Equal(t, "Norway", f.AwayTeam)
	assert.Equal(t, 3, *f.HomeGoals)
	assert.Equal(t, 0, *f.AwayGoals)
	assert.Equal(t, "Friendlies", f.League)
	assert.Equal(t, 10, *f.LeagueID)
	assert.Equal(t, 2023, *f.Season)

	assert.Nil(t, b.Fixtures[1].HomeGoals)
	assert.Nil(t, b.Fixtures[1].AwayGoals)

	assert.Equal(t, map[string]int{ExcludeNoAwayTeam: 1, ExcludeNoFixtureID: 1, ExcludeMalformed: 1}, b.Excluded)
	assert.Equal(t, 3, b.ExcludedCount())
}

func TestParsePayload_NotJSON(t *testing.T) {
	_, err := ParsePayload([]byte("<html>"), SourceRef{LeagueID: 1, Season: 2022, Path: "bad.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "league=1 season=2022 file=bad.json")
}

func TestClientFixtures_SendsKeyAndParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fixtures", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("league"))
		assert.Equal(t, "2023", r.URL.Query().Get("season"))
		assert.Equal(t, "secret", r.Header.Get("x-apisports-key"))
		_, _ = io.WriteString(w, samplePayload)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 6000, quiet)
	body, err := c.Fixtures(context.Background(), 10, 2023)
	require.NoError(t, err)
	assert.Equal(t, 5, ResponseCount(body))
}

func TestClientFixtures_ErrorsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"errors": {"token": "Error/Missing application key"}, "response": []}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", 6000, quiet).Fixtures(context.Background(), 1, 2022)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing application key")
}

type stubSource struct {
	fail map[int]bool
}

func (s stubSource) Fixtures(_ context.Context, leagueID, _ int) ([]byte, error) {
	if s.fail[leagueID] {
		return nil, errors.New("HTTP 500 | boom")
	}
	return []byte(samplePayload), nil
}

func TestFetchThenLoad(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "manifest_fixtures.csv")

	f := NewFetcher(stubSource{fail: map[int]bool{1: true}}, dir, quiet)
	f.now = func() time.Time { return time.Date(2026, 1, 19, 10, 30, 0, 0, time.UTC) }

	leagues := []config.LeagueConfig{{ID: 1, Name: "World Cup"}, {ID: 10, Name: "Friendlies"}}
	res, err := f.Fetch(context.Background(), leagues, []int{2023}, manifest)
	require.NoError(t, err)
	assert.Equal(t, 1, res.OK)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 5, res.Fixtures)
	assert.Equal(t, "2026-01-19_103000", res.RunID)

	errFile := filepath.Join(dir, "league_1_World_Cup", "ERROR_fixtures_league_1_season_2023_2026-01-19_103000.json")
	assert.FileExists(t, errFile)
	okFile := filepath.Join(dir, "league_10_Friendlies", "fixtures_league_10_season_2023_2026-01-19_103000.json")
	assert.FileExists(t, okFile)

	records, err := ReadManifest(manifest)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, StatusError, records[0].Status)
	assert.Equal(t, "HTTP 500 | boom", records[0].Error)
	assert.Equal(t, StatusOK, records[1].Status)
	assert.Equal(t, "4", records[1].ResultsField)
	assert.Equal(t, `{"league":10,"season":2023}`, records[1].Params)

	batches, err := LoadPayloads(dir, manifest)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 10, batches[0].Ref.LeagueID)
	assert.Len(t, Flatten(batches), 2)

	// Without a manifest every fixtures_*.json file is read and ERROR_ files are ignored.
	require.NoError(t, os.Remove(manifest))
	batches, err = LoadPayloads(dir, manifest)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 2023, batches[0].Ref.Season)
}

func TestLoadPayloads_EmptyDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "absent")
	batches, err := LoadPayloads(dir, filepath.Join(dir, "manifest.csv"))
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestLoadPayloads_CorruptPayloadNamesSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixtures_league_5_season_2024_x.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := LoadPayloads(dir, filepath.Join(dir, "manifest.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "league=5 season=2024")
}
