package artifact

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/albapepper/scoracle-matches/internal/provider"
)

// MatchColumns is the column order of every curated match table.
var MatchColumns = []string{
	"match_key", "source", "row_index", "date",
	"home_team_raw", "away_team_raw", "home_team", "away_team",
	"home_score", "away_score", "tournament", "city", "country", "neutral",
	"has_shootout", "shootout_winner",
	"goalscorers_rows", "penalty_goals_count", "own_goals_count",
	"fixture_id", "league_id", "season",
	"home_rank", "home_points", "away_rank", "away_points", "rank_points_diff",
	"outcome_code", "outcome", "total_goals", "goal_diff_home",
}

// MatchRow serializes one record. Nulls become empty cells; an absent goal
// aggregate is written as zero counts.
func MatchRow(m provider.MatchRecord) []string {
	var homeRank, homePts, awayRank, awayPts string
	if m.HomeRank != nil {
		homeRank, homePts = strconv.Itoa(m.HomeRank.Position), formatFloat(m.HomeRank.Points)
	}
	if m.AwayRank != nil {
		awayRank, awayPts = strconv.Itoa(m.AwayRank.Position), formatFloat(m.AwayRank.Points)
	}
	neutral := ""
	if m.NeutralSite != provider.Unknown {
		neutral = m.NeutralSite.String()
	}

	return []string{
		m.MatchKey, string(m.Source), strconv.Itoa(m.RowIndex), m.Date.String(),
		m.HomeTeamRaw, m.AwayTeamRaw, m.HomeTeamCanonical, m.AwayTeamCanonical,
		formatInt(m.HomeScore), formatInt(m.AwayScore), m.Tournament, m.VenueCity, m.VenueCountry, neutral,
		strconv.FormatBool(m.HasShootout), m.ShootoutWinner,
		strconv.Itoa(m.Goals.Events), strconv.Itoa(m.Goals.Penalties), strconv.Itoa(m.Goals.OwnGoals),
		formatInt(m.FixtureID), formatInt(m.LeagueID), formatInt(m.Season),
		homeRank, homePts, awayRank, awayPts, formatFloatPtr(m.RankPointsDiff),
		formatInt(m.OutcomeCode), string(m.Outcome), formatInt(m.TotalGoals), formatInt(m.GoalDiffHome),
	}
}

// WriteMatches writes a curated match table.
func WriteMatches(path string, rows []provider.MatchRecord) error {
	out := make([][]string, len(rows))
	for i, m := range rows {
		out[i] = MatchRow(m)
	}
	return WriteCSV(path, MatchColumns, out)
}

// RankingColumns is the column order of ranking tables.
var RankingColumns = []string{"rank", "team", "code", "points", "period_label"}

// WriteRanking writes a ranking snapshot, raw or processed.
func WriteRanking(path string, snap provider.RankingSnapshot) error {
	out := make([][]string, len(snap.Entries))
	for i, e := range snap.Entries {
		out[i] = []string{strconv.Itoa(e.Position), e.Team, e.Code, formatFloat(e.Points), snap.PeriodLabel}
	}
	return WriteCSV(path, RankingColumns, out)
}

// ReadRanking reads a ranking table written by WriteRanking. Rows with an
// unparsable rank or points are skipped.
func ReadRanking(path string) (provider.RankingSnapshot, error) {
	t, err := ReadCSV(path)
	if err != nil {
		return provider.RankingSnapshot{}, err
	}
	if missing := t.Missing("rank", "team", "points"); len(missing) > 0 {
		return provider.RankingSnapshot{}, fmt.Errorf("ranking %s: missing columns %v", path, missing)
	}

	snap := provider.RankingSnapshot{PeriodLabel: provider.UnknownPeriod}
	for i := 0; i < t.Len(); i++ {
		pos, err := strconv.Atoi(strings.TrimSpace(t.Get(i, "rank")))
		if err != nil {
			continue
		}
		pts, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t.Get(i, "points")), ",", ""), 64)
		if err != nil {
			continue
		}
		if label := t.Get(i, "period_label"); label != "" && snap.PeriodLabel == provider.UnknownPeriod {
			snap.PeriodLabel = label
		}
		snap.Entries = append(snap.Entries, provider.RankingEntry{
			Position: pos,
			Team:     t.Get(i, "team"),
			Code:     t.Get(i, "code"),
			Points:   pts,
		})
	}
	return snap, nil
}

// RawRankingPageName names the raw snapshot of one scraped page.
func RawRankingPageName(date provider.Date, period string, page int) string {
	return fmt.Sprintf("football_ranking_raw_%s_%s_page_%d.csv", date, FileSafe(period), page)
}

// FileSafe keeps letters, digits, '-' and '_' and replaces everything else
// with '_'.
func FileSafe(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func formatInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatFloatPtr(p *float64) string {
	if p == nil {
		return ""
	}
	return formatFloat(*p)
}
