package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-matches/internal/alias"
	"github.com/albapepper/scoracle-matches/internal/matchkey"
	"github.com/albapepper/scoracle-matches/internal/normalize"
	"github.com/albapepper/scoracle-matches/internal/provider"
	"github.com/albapepper/scoracle-matches/internal/provider/apifootball"
	"github.com/albapepper/scoracle-matches/internal/provider/historical"
	"github.com/albapepper/scoracle-matches/internal/report"
)

func d(s string) provider.Date { return provider.ParseDate(s) }

func results() []historical.Result {
	return []historical.Result{
		{Date: d("2023-01-01"), HomeTeam: "Spain", AwayTeam: "France", HomeScore: provider.IntPtr(2), AwayScore: provider.IntPtr(1)},
		{Date: d("2023-01-01"), HomeTeam: "France", AwayTeam: "Spain", HomeScore: provider.IntPtr(0), AwayScore: provider.IntPtr(0)},
		{Date: d("2023-01-01"), HomeTeam: "Spain", AwayTeam: "France", Tournament: "Relisted"},
		{Date: provider.Date{}, HomeTeam: "Chile", AwayTeam: "Peru"},
		{Date: d("2022-12-18"), HomeTeam: "Argentina ", AwayTeam: "France", HomeScore: provider.IntPtr(3), AwayScore: provider.IntPtr(3)},
	}
}

func TestJoins_PreserveCardinalityAndOrder(t *testing.T) {
	rep := report.New("t", time.Now())
	base := BaseRecords(results(), normalize.Name)

	shootouts := []historical.Shootout{
		{Date: d("2022-12-18"), HomeTeam: "Argentina", AwayTeam: "France", Winner: "Argentina"},
		{Date: d("2022-12-18"), HomeTeam: "Argentina", AwayTeam: "France", Winner: "France"},
		{Date: d("1990-07-04"), HomeTeam: "West Germany", AwayTeam: "England", Winner: "West Germany"},
	}
	step1 := JoinShootouts(base, shootouts, normalize.Name, rep)
	require.Len(t, step1, len(base))

	goals := []historical.Goal{
		{Date: d("2023-01-01"), HomeTeam: "Spain", AwayTeam: "France", Scorer: "Morata", Penalty: true},
		{Date: d("2023-01-01"), HomeTeam: "Spain", AwayTeam: "France", Scorer: "Gavi"},
		{Date: d("2023-01-01"), HomeTeam: "Spain", AwayTeam: "France", Scorer: "", OwnGoal: true},
		{Date: provider.Date{}, HomeTeam: "Chile", AwayTeam: "Peru", Scorer: "Sánchez"},
	}
	aggs, unjoinable := AggregateGoals(goals, normalize.Name)
	assert.Equal(t, 1, unjoinable)
	step2 := JoinGoals(step1, aggs, rep)
	require.Len(t, step2, len(base))

	for i := range base {
		assert.Equal(t, base[i].RowIndex, step2[i].RowIndex)
	}

	// Both relisted Spain-France rows receive the same aggregate; neither is collapsed.
	assert.Equal(t, provider.GoalAggregate{Present: true, Events: 2, Penalties: 1, OwnGoals: 1}, step2[0].Goals)
	assert.Equal(t, step2[0].Goals, step2[2].Goals)
	assert.False(t, step2[1].Goals.Present)
	assert.False(t, step2[3].Goals.Present)
	assert.Equal(t, 3, rep.AbsentGoals)

	// First-seen shootout wins; the duplicate is reported.
	assert.True(t, step2[4].HasShootout)
	assert.Equal(t, "Argentina", step2[4].ShootoutWinner)
	assert.False(t, step2[0].HasShootout)
	require.Len(t, rep.Dedup, 1)
	assert.Equal(t, 1, rep.Dedup[0].DiscardedCount())
	assert.True(t, rep.HasFinding("duplicate_match_keys"))
	assert.True(t, rep.HasFinding("orphan_shootouts"))
}

func TestJoinRankings_PointsDiffAndMatchRate(t *testing.T) {
	rep := report.New("t", time.Now())
	rows := BaseRecords(results()[:2], normalize.Name)

	snap := provider.RankingSnapshot{PeriodLabel: "p", Entries: []provider.RankingEntry{
		{Position: 1, Team: "Spain", Points: 1800},
		{Position: 2, Team: "France", Points: 1700},
	}}
	idx := NewRankingIndex(snap, normalize.Name)
	out := JoinRankings(rows, idx, FamilyHistorical, rep)
	require.Len(t, out, 2)

	require.NotNil(t, out[0].RankPointsDiff)
	assert.Equal(t, 100.0, *out[0].RankPointsDiff)
	assert.Equal(t, -100.0, *out[1].RankPointsDiff)
	assert.Equal(t, 1, out[0].HomeRank.Position)

	rate, ok := rep.MatchRate(FamilyHistorical)
	require.True(t, ok)
	assert.Equal(t, 1.0, rate.BothRate())
	assert.False(t, rep.HasFinding("low_match_rate"))
}

func TestJoinRankings_UnmatchedStaysNull(t *testing.T) {
	rep := report.New("t", time.Now())
	rows := BaseRecords([]historical.Result{
		{Date: d("2023-01-01"), HomeTeam: "Spain", AwayTeam: "Tahiti"},
		{Date: d("2023-01-02"), HomeTeam: "Tahiti", AwayTeam: "Guam"},
	}, normalize.Name)
	idx := NewRankingIndex(provider.RankingSnapshot{Entries: []provider.RankingEntry{{Position: 1, Team: "Spain", Points: 1800}}}, normalize.Name)

	out := JoinRankings(rows, idx, FamilyLive, rep)
	assert.NotNil(t, out[0].HomeRank)
	assert.Nil(t, out[0].AwayRank)
	assert.Nil(t, out[0].RankPointsDiff)
	assert.Nil(t, out[1].RankPointsDiff)

	rate, _ := rep.MatchRate(FamilyLive)
	assert.Equal(t, 0.5, rate.HomeRate())
	assert.Equal(t, 0.0, rate.AwayRate())
	assert.Equal(t, []alias.NameCount{{Name: "Guam", Count: 1}, {Name: "Tahiti", Count: 1}}, rate.TopUnmatchedAway)
	assert.True(t, rep.HasFinding("low_match_rate"))
}

func TestResolveTeams_ThenRankings(t *testing.T) {
	rep := report.New("t", time.Now())
	fixtures := []apifootball.Fixture{
		{FixtureID: 7, Date: d("2024-03-22"), HomeTeam: "USA", AwayTeam: "Jamaica", League: "CONCACAF Nations League", LeagueID: provider.IntPtr(536), Season: provider.IntPtr(2023)},
	}
	rows := ReshapeFixtures(fixtures, normalize.Name)
	assert.Equal(t, provider.SourceLive, rows[0].Source)
	assert.Equal(t, 7, *rows[0].FixtureID)
	assert.Equal(t, provider.Unknown, rows[0].NeutralSite)

	live := alias.New("live", map[string]string{"USA": "United States"}, normalize.Name)
	hist := alias.New("hist", map[string]string{"United States": "USA"}, normalize.Name)
	tracker := alias.NewTracker()
	rows = ResolveTeams(rows, alias.Chain{live, hist}, tracker)
	assert.Equal(t, "USA", rows[0].HomeTeamCanonical)
	assert.Equal(t, "USA", rows[0].HomeTeamRaw)
	assert.Equal(t, 1, tracker.Mapped)
	assert.Equal(t, 1, tracker.UnmappedCount("Jamaica"))

	idx := NewRankingIndex(provider.RankingSnapshot{Entries: []provider.RankingEntry{
		{Position: 11, Team: "USA", Points: 1670.0},
		{Position: 55, Team: "Jamaica", Points: 1450.5},
	}}, normalize.Name)
	rows = JoinRankings(rows, idx, FamilyLive, rep)
	assert.InDelta(t, 219.5, *rows[0].RankPointsDiff, 1e-9)
}

func TestAssignKeysAndConcat(t *testing.T) {
	rep := report.New("t", time.Now())
	hist := AssignKeys(BaseRecords(results(), normalize.Name), matchkey.PolicyTriple)
	live := AssignKeys(ReshapeFixtures([]apifootball.Fixture{{FixtureID: 1, Date: d("2023-01-01"), HomeTeam: "Spain", AwayTeam: "France"}}, normalize.Name), matchkey.PolicyTriple)

	all := Concat(rep, hist, live)
	assert.Len(t, all, 6)
	assert.Equal(t, "live_api:2023-01-01|Spain|France", all[5].MatchKey)
	require.Len(t, rep.Unresolved, 1)
	assert.Equal(t, "historical_export:2023-01-01|Spain|France", rep.Unresolved[0].Key)
	assert.Equal(t, []int{0, 2}, rep.Unresolved[0].Rows)

	rep = report.New("t", time.Now())
	hist = AssignKeys(BaseRecords(results(), normalize.Name), matchkey.PolicyRowIndex)
	Concat(rep, hist, live)
	assert.Empty(t, rep.Unresolved)
	assert.False(t, rep.HasFinding("unresolved_duplicate"))
}

func TestNewRankingIndex_Duplicates(t *testing.T) {
	idx := NewRankingIndex(provider.RankingSnapshot{Entries: []provider.RankingEntry{
		{Position: 1, Team: "Spain", Points: 1800},
		{Position: 9, Team: " Spain", Points: 1},
	}}, normalize.Name)
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, 1, idx.Duplicates)
	r, ok := idx.Lookup("Spain")
	require.True(t, ok)
	assert.Equal(t, 1, r.Position)
}
