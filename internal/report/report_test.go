package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-matches/internal/matchkey"
	"github.com/albapepper/scoracle-matches/internal/ranking"
)

func TestReport_IsolatedPerRun(t *testing.T) {
	a := New("a", time.Now())
	b := New("b", time.Now())
	a.Exclude("live", "missing_home_team", 2)
	a.Warnf("live", "x", 1, "boom")

	assert.Equal(t, 2, a.Excluded("live"))
	assert.Equal(t, 0, b.Excluded("live"))
	assert.Empty(t, b.Findings)
}

func TestExclude_IgnoresNonPositive(t *testing.T) {
	r := New("r", time.Now())
	r.Exclude("live", "reason", 0)
	assert.Empty(t, r.Exclusions)
	r.Exclude("live", "reason", 3)
	r.Exclude("live", "reason", 1)
	assert.Equal(t, map[string]int{"reason": 4}, r.Exclusions["live"])
}

func TestAddDedup(t *testing.T) {
	r := New("r", time.Now())
	r.AddDedup(matchkey.DedupReport{Source: "shootouts", Input: 3, Kept: 2})
	assert.Empty(t, r.Findings)

	r.AddDedup(matchkey.DedupReport{
		Source: "shootouts", Input: 4, Kept: 2, Unjoinable: 1,
		Duplicates: []matchkey.Duplicate{{Key: "k", KeptRow: 0, Discarded: []int{1}}},
	})
	assert.True(t, r.HasFinding("duplicate_match_keys"))
	assert.True(t, r.HasFinding("unknown_date"))
	assert.Len(t, r.Dedup, 2)
}

func TestSetRankingValidation(t *testing.T) {
	r := New("r", time.Now())
	r.SetRankingValidation(ranking.Validation{Total: 3, MaxPosition: 4, MaxExpected: 4, Missing: []int{3}, Duplicated: []int{2}})
	require.NotNil(t, r.Ranking)
	assert.True(t, r.HasFinding("missing_positions"))
	assert.True(t, r.HasFinding("duplicate_positions"))
	assert.True(t, r.HasFinding("position_gaps"))

	ok := New("ok", time.Now())
	ok.SetRankingValidation(ranking.Validation{Total: 2, MaxPosition: 2, MaxExpected: 2, Contiguous: true})
	assert.Empty(t, ok.Findings)
}

func TestMatchRateAndSummary(t *testing.T) {
	r := New("r", time.Now())
	r.SetRows("curated", 4)
	r.AddMatchRate(MatchRate{Family: "historical", Rows: 4, Home: 4, Away: 2, Both: 2})
	r.AddErrorf("page %d failed", 3)

	m, ok := r.MatchRate("historical")
	require.True(t, ok)
	assert.Equal(t, 0.5, m.BothRate())
	_, ok = r.MatchRate("live")
	assert.False(t, ok)
	assert.Equal(t, 0.0, MatchRate{}.HomeRate())

	s := r.Summary()
	assert.True(t, strings.HasPrefix(s, "curated=4 "))
	assert.Contains(t, s, "historical_match(home=100.00% away=50.00% both=50.00%)")
	assert.Contains(t, s, "errors=1")
}
