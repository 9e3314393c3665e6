package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/scoracle-matches/internal/config"
	"github.com/albapepper/scoracle-matches/internal/provider"
	"github.com/albapepper/scoracle-matches/internal/report"
)

// MatchCopyColumns is the column order used when copying curated matches.
var MatchCopyColumns = []string{
	"source", "row_index", "match_key", "date",
	"home_team_raw", "away_team_raw", "home_team", "away_team",
	"home_score", "away_score", "tournament", "city", "country", "neutral",
	"has_shootout", "shootout_winner",
	"goalscorers_rows", "penalty_goals_count", "own_goals_count",
	"fixture_id", "league_id", "season",
	"home_rank", "home_points", "away_rank", "away_points", "rank_points_diff",
	"outcome_code", "outcome", "total_goals", "goal_diff_home",
}

// RankingCopyColumns is the column order used when copying ranking entries.
var RankingCopyColumns = []string{"rank", "team", "code", "points", "period_label"}

// MatchValues converts a record to the values of MatchCopyColumns. Unknown
// dates, missing scores and absent ranks become NULL.
func MatchValues(m provider.MatchRecord) []any {
	var date any
	if t, ok := m.Date.Time(); ok {
		date = t
	}
	var neutral any
	switch m.NeutralSite {
	case provider.True:
		neutral = true
	case provider.False:
		neutral = false
	}
	var homeRank, homePts, awayRank, awayPts any
	if m.HomeRank != nil {
		homeRank, homePts = m.HomeRank.Position, m.HomeRank.Points
	}
	if m.AwayRank != nil {
		awayRank, awayPts = m.AwayRank.Position, m.AwayRank.Points
	}

	return []any{
		string(m.Source), m.RowIndex, m.MatchKey, date,
		m.HomeTeamRaw, m.AwayTeamRaw, m.HomeTeamCanonical, m.AwayTeamCanonical,
		m.HomeScore, m.AwayScore, nilEmpty(m.Tournament), nilEmpty(m.VenueCity), nilEmpty(m.VenueCountry), neutral,
		m.HasShootout, nilEmpty(m.ShootoutWinner),
		m.Goals.Events, m.Goals.Penalties, m.Goals.OwnGoals,
		m.FixtureID, m.LeagueID, m.Season,
		homeRank, homePts, awayRank, awayPts, m.RankPointsDiff,
		m.OutcomeCode, string(m.Outcome), m.TotalGoals, m.GoalDiffHome,
	}
}

// RankingValues converts one ranking entry to the values of RankingCopyColumns.
func RankingValues(e provider.RankingEntry, period string) []any {
	return []any{e.Position, e.Team, nilEmpty(e.Code), e.Points, period}
}

// Publish replaces the published matches and ranking with a new run and
// records its report, all in one transaction. Listeners on PublishedChannel
// are notified with the run id on commit.
func (p *Pool) Publish(ctx context.Context, rep *report.Report, matches []provider.MatchRecord, snap provider.RankingSnapshot) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	tx, err := p.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE "+config.MatchesTable+", "+config.RankingsTable); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{config.MatchesTable}, MatchCopyColumns,
		pgx.CopyFromSlice(len(matches), func(i int) ([]any, error) {
			return MatchValues(matches[i]), nil
		}))
	if err != nil {
		return fmt.Errorf("copy matches: %w", err)
	}
	if int(n) != len(matches) {
		return fmt.Errorf("copy matches: wrote %d of %d rows", n, len(matches))
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{config.RankingsTable}, RankingCopyColumns,
		pgx.CopyFromSlice(len(snap.Entries), func(i int) ([]any, error) {
			return RankingValues(snap.Entries[i], snap.PeriodLabel), nil
		})); err != nil {
		return fmt.Errorf("copy ranking: %w", err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO `+config.RunsTable+` (run_id, started_at, match_rows, report)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id) DO UPDATE SET
			published_at = NOW(),
			match_rows = EXCLUDED.match_rows,
			report = EXCLUDED.report`,
		rep.RunID, rep.StartedAt, len(matches), body)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", PublishedChannel, rep.RunID); err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// PruneRuns deletes all but the keep most recent run reports.
func (p *Pool) PruneRuns(ctx context.Context, keep int, logger *slog.Logger) error {
	tag, err := p.Exec(ctx, StmtPruneRuns, keep)
	if err != nil {
		return fmt.Errorf("prune runs: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		logger.Info("Pruned run reports", "deleted", n, "kept", keep)
	}
	return nil
}

// LatestRunID returns the id of the most recent publication, or "" when
// nothing has been published.
func (p *Pool) LatestRunID(ctx context.Context) (string, error) {
	var id string
	err := p.QueryRow(ctx, StmtLatestRunID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest run: %w", err)
	}
	return id, nil
}

func nilEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
