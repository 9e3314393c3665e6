package curate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-matches/internal/alias"
	"github.com/albapepper/scoracle-matches/internal/artifact"
	"github.com/albapepper/scoracle-matches/internal/config"
	"github.com/albapepper/scoracle-matches/internal/matchkey"
	"github.com/albapepper/scoracle-matches/internal/normalize"
	"github.com/albapepper/scoracle-matches/internal/provider"
	"github.com/albapepper/scoracle-matches/internal/provider/apifootball"
	"github.com/albapepper/scoracle-matches/internal/provider/historical"
	"github.com/albapepper/scoracle-matches/internal/ranking"
	"github.com/albapepper/scoracle-matches/internal/report"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

var fixedNow = func() time.Time { return time.Date(2026, 1, 19, 10, 30, 0, 0, time.UTC) }

func d(s string) provider.Date { return provider.ParseDate(s) }

func snapshot() provider.RankingSnapshot {
	return provider.RankingSnapshot{PeriodLabel: "19 January 2026", Entries: []provider.RankingEntry{
		{Position: 1, Team: "Spain (ESP)", Code: "ESP", Points: 1800},
		{Position: 2, Team: "France (FRA)", Code: "FRA", Points: 1700},
		{Position: 3, Team: "Korea Republic (KOR)", Code: "KOR", Points: 1600},
	}}
}

func TestCurate_ReversedFixturesStayDistinct(t *testing.T) {
	rep := report.New("t", fixedNow())
	in := Inputs{
		Historical: &historical.Export{Results: []historical.Result{
			{Date: d("2023-01-01"), HomeTeam: "Spain", AwayTeam: "France", HomeScore: provider.IntPtr(2), AwayScore: provider.IntPtr(1)},
			{Date: d("2023-01-01"), HomeTeam: "France", AwayTeam: "Spain", HomeScore: provider.IntPtr(0), AwayScore: provider.IntPtr(0)},
		}},
		Ranking: snapshot(),
	}

	out := Curate(in, Options{Policy: matchkey.PolicyTriple}, rep, quiet)

	require.Len(t, out.Final, 2)
	assert.NotEqual(t, out.Final[0].MatchKey, out.Final[1].MatchKey)
	assert.Equal(t, provider.OutcomeHomeWin, out.Final[0].Outcome)
	assert.Equal(t, provider.OutcomeDraw, out.Final[1].Outcome)
	assert.Empty(t, rep.Unresolved)

	require.NotNil(t, out.Final[0].RankPointsDiff)
	assert.InDelta(t, 100.0, *out.Final[0].RankPointsDiff, 1e-9)
	assert.InDelta(t, -100.0, *out.Final[1].RankPointsDiff, 1e-9)
	assert.Equal(t, 3, *out.Final[0].TotalGoals)
	assert.Equal(t, 1, *out.Final[0].GoalDiffHome)
}

func TestCurate_LiveNamesResolveThroughChain(t *testing.T) {
	rep := report.New("t", fixedNow())
	liveToHist := alias.New(alias.LiveToHistorical.Pair, map[string]string{"Korea Rep.": "South Korea"}, normalize.Name)
	histToRank := alias.New(alias.HistoricalToRanking.Pair, map[string]string{"South Korea": "Korea Republic"}, normalize.Name)

	in := Inputs{
		Historical: &historical.Export{},
		Live: []apifootball.Batch{{
			Fixtures: []apifootball.Fixture{{
				FixtureID: 77, Date: d("2023-03-24"),
				HomeTeam: "Korea Rep.", AwayTeam: "Spain",
				HomeGoals: provider.IntPtr(1), AwayGoals: provider.IntPtr(3),
			}},
			Excluded: map[string]int{apifootball.ExcludeNoAwayTeam: 2},
		}},
		Ranking:             snapshot(),
		HistoricalToRanking: histToRank,
		LiveToHistorical:    liveToHist,
	}

	out := Curate(in, Options{Policy: matchkey.PolicyRowIndex}, rep, quiet)

	require.Len(t, out.Live, 1)
	m := out.Live[0]
	assert.Equal(t, "Korea Rep.", m.HomeTeamRaw)
	assert.Equal(t, "Korea Republic", m.HomeTeamCanonical)
	require.NotNil(t, m.HomeRank)
	assert.Equal(t, 3, m.HomeRank.Position)
	assert.Equal(t, provider.OutcomeAwayWin, m.Outcome)
	assert.True(t, strings.HasPrefix(m.MatchKey, string(provider.SourceLive)+":"))

	assert.Equal(t, 2, rep.Excluded(string(provider.SourceLive)))
	assert.True(t, rep.HasFinding("excluded_fixtures"))
	rate, ok := rep.MatchRate("live")
	require.True(t, ok)
	assert.Equal(t, 1, rate.Both)
}

func TestCurate_UnrankedTeamsKeepNullDiff(t *testing.T) {
	rep := report.New("t", fixedNow())
	in := Inputs{
		Historical: &historical.Export{Results: []historical.Result{
			{Date: d("1872-11-30"), HomeTeam: "Scotland", AwayTeam: "England", HomeScore: provider.IntPtr(0), AwayScore: provider.IntPtr(0)},
		}},
		Ranking: snapshot(),
	}
	out := Curate(in, Options{}, rep, quiet)
	require.Len(t, out.Final, 1)
	assert.Nil(t, out.Final[0].HomeRank)
	assert.Nil(t, out.Final[0].RankPointsDiff)
	assert.True(t, rep.HasFinding("low_match_rate"))
}

// --------------------------------------------------------------------------
// Run
// --------------------------------------------------------------------------

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func seedDataDir(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		DataDir:            t.TempDir(),
		RankingMaxPosition: 3,
		RankingMinPageRows: 50,
		RankingMaxPages:    5,
		MatchKeyPolicy:     "row_index",
	}
	p := cfg.Paths()
	writeFile(t, filepath.Join(p.RawHistoricalDir, "results.csv"),
		"date,home_team,away_team,home_score,away_score,tournament,city,country,neutral\n"+
			"2022-12-18,Argentina,France,3,3,FIFA World Cup,Lusail,Qatar,TRUE\n"+
			"2023-01-01,Spain,France,2,1,Friendly,Madrid,Spain,FALSE\n")
	writeFile(t, filepath.Join(p.RawHistoricalDir, "shootouts.csv"),
		"date,home_team,away_team,winner\n2022-12-18,Argentina,France,Argentina\n")
	writeFile(t, filepath.Join(p.RawHistoricalDir, "goalscorers.csv"),
		"date,home_team,away_team,team,scorer,own_goal,penalty\n"+
			"2023-01-01,Spain,France,Spain,Morata,FALSE,TRUE\n")
	return cfg
}

func TestRun_WritesArtifacts(t *testing.T) {
	cfg := seedDataDir(t)
	p := cfg.Paths()
	require.NoError(t, artifact.WriteRanking(p.ProcessedRanking, provider.RankingSnapshot{
		PeriodLabel: "19 January 2026",
		Entries: []provider.RankingEntry{
			{Position: 1, Team: "Argentina", Points: 1880},
			{Position: 2, Team: "Spain", Points: 1800},
			{Position: 3, Team: "France", Points: 1700},
		},
	}))

	pub := &recordingPublisher{}
	out, rep, err := Run(context.Background(), cfg, RunOptions{Publisher: pub, Now: fixedNow}, quiet)
	require.NoError(t, err)

	assert.Equal(t, "20260119T103000Z", rep.RunID)
	require.Len(t, out.Final, 2)
	assert.True(t, out.Final[0].HasShootout)
	assert.Equal(t, "Argentina", out.Final[0].ShootoutWinner)
	assert.Equal(t, provider.GoalAggregate{Present: true, Events: 1, Penalties: 1}, out.Final[1].Goals)
	assert.InDelta(t, 100.0, *out.Final[1].RankPointsDiff, 1e-9)
	require.NotNil(t, rep.Ranking)
	assert.True(t, rep.Ranking.OK())

	for _, path := range []string{p.CuratedHistorical, p.CuratedLive, p.CuratedFinal, p.ProcessedResults, p.ProcessedFixtures} {
		assert.FileExists(t, path)
	}
	final, err := artifact.ReadCSV(p.CuratedFinal)
	require.NoError(t, err)
	assert.Equal(t, artifact.MatchColumns, final.Header)
	assert.Equal(t, 2, final.Len())
	assert.Equal(t, "home_win", final.Get(1, "outcome"))

	raw, err := os.ReadFile(p.RunReport)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "20260119T103000Z", decoded["run_id"])

	assert.Equal(t, 1, pub.calls)
	assert.Len(t, pub.matches, 2)
	assert.Len(t, pub.ranking.Entries, 3)
}

func TestRun_MissingRankingIsFatal(t *testing.T) {
	cfg := seedDataDir(t)
	_, _, err := Run(context.Background(), cfg, RunOptions{Now: fixedNow}, quiet)
	require.ErrorIs(t, err, historical.ErrMissingInput)
	assert.Contains(t, err.Error(), "ranking")
}

func TestRun_MissingHistoricalIsFatal(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir()}
	_, _, err := Run(context.Background(), cfg, RunOptions{Now: fixedNow}, quiet)
	require.ErrorIs(t, err, historical.ErrMissingInput)
}

func TestRun_MalformedMappingIsFatal(t *testing.T) {
	cfg := seedDataDir(t)
	writeFile(t, cfg.Paths().HistoricalMapping, "foo,bar\nx,y\n")
	_, _, err := Run(context.Background(), cfg, RunOptions{Now: fixedNow}, quiet)
	require.ErrorIs(t, err, alias.ErrMappingSchema)
}

func TestRun_ScrapeFetchErrorKeepsPartialRanking(t *testing.T) {
	cfg := seedDataDir(t)
	cfg.RankingMinPageRows = 2
	page1 := `<html><body><div><span>Period</span>
<span>19 January 2026</span></div><table><thead><tr><th>Rank</th><th>Team</th><th>Points</th></tr></thead><tbody>
<tr><td>1</td><td>Argentina (ARG)</td><td>1,880.00</td></tr>
<tr><td>2</td><td>Spain (ESP)</td><td>1,800.00</td></tr>
</tbody></table></body></html>`
	fetcher := ranking.FetcherFunc(func(_ context.Context, page int) (string, error) {
		if page == 1 {
			return page1, nil
		}
		return "", errors.New("connection reset")
	})

	out, rep, err := Run(context.Background(), cfg, RunOptions{ScrapeRanking: true, Fetcher: fetcher, Now: fixedNow}, quiet)
	require.NoError(t, err)
	require.NotEmpty(t, rep.Errors)
	assert.Contains(t, rep.Errors[0], "keeping 1 pages")
	assert.Len(t, out.Ranking.Entries, 2)
	assert.Equal(t, "Spain", out.Ranking.Entries[1].Team)
	assert.True(t, rep.HasFinding("missing_positions"))

	snap, err := artifact.ReadRanking(cfg.Paths().ProcessedRanking)
	require.NoError(t, err)
	assert.Equal(t, "19 January 2026", snap.PeriodLabel)
	assert.Len(t, snap.Entries, 2)

	raws, err := filepath.Glob(filepath.Join(cfg.Paths().RawRankingDir, "football_ranking_raw_*_page_1.csv"))
	require.NoError(t, err)
	assert.Len(t, raws, 1)
}

func TestRun_ScrapeFailsOnFirstPage(t *testing.T) {
	cfg := seedDataDir(t)
	p := cfg.Paths()
	previous := provider.RankingSnapshot{
		PeriodLabel: "22 December 2025",
		Entries: []provider.RankingEntry{
			{Position: 1, Team: "Argentina", Points: 1880},
			{Position: 2, Team: "Spain", Points: 1800},
		},
	}
	require.NoError(t, artifact.WriteRanking(p.ProcessedRanking, previous))
	fetcher := ranking.FetcherFunc(func(_ context.Context, _ int) (string, error) {
		return "", errors.New("connection refused")
	})

	pub := &recordingPublisher{}
	_, _, err := Run(context.Background(), cfg, RunOptions{ScrapeRanking: true, Fetcher: fetcher, Publisher: pub, Now: fixedNow}, quiet)
	require.ErrorIs(t, err, ranking.ErrFetch)
	assert.Equal(t, 0, pub.calls)

	snap, err := artifact.ReadRanking(p.ProcessedRanking)
	require.NoError(t, err)
	assert.Equal(t, "22 December 2025", snap.PeriodLabel)
	assert.Len(t, snap.Entries, 2)
}

type recordingPublisher struct {
	calls   int
	matches []provider.MatchRecord
	ranking provider.RankingSnapshot
}

func (p *recordingPublisher) Publish(_ context.Context, _ *report.Report, matches []provider.MatchRecord, snap provider.RankingSnapshot) error {
	p.calls++
	p.matches = matches
	p.ranking = snap
	return nil
}
