package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/scoracle-matches/internal/config"
)

// PublishedChannel is notified with the run id after every publication.
const PublishedChannel = "curation_published"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ` + config.MatchesTable + ` (
		source              text    NOT NULL,
		row_index           integer NOT NULL,
		match_key           text    NOT NULL,
		date                date,
		home_team_raw       text    NOT NULL,
		away_team_raw       text    NOT NULL,
		home_team           text    NOT NULL,
		away_team           text    NOT NULL,
		home_score          integer,
		away_score          integer,
		tournament          text,
		city                text,
		country             text,
		neutral             boolean,
		has_shootout        boolean NOT NULL DEFAULT false,
		shootout_winner     text,
		goalscorers_rows    integer NOT NULL DEFAULT 0,
		penalty_goals_count integer NOT NULL DEFAULT 0,
		own_goals_count     integer NOT NULL DEFAULT 0,
		fixture_id          integer,
		league_id           integer,
		season              integer,
		home_rank           integer,
		home_points         double precision,
		away_rank           integer,
		away_points         double precision,
		rank_points_diff    double precision,
		outcome_code        smallint,
		outcome             text    NOT NULL,
		total_goals         integer,
		goal_diff_home      integer,
		PRIMARY KEY (source, row_index)
	)`,
	`CREATE INDEX IF NOT EXISTS ` + config.MatchesTable + `_key_idx ON ` + config.MatchesTable + ` (match_key)`,
	`CREATE INDEX IF NOT EXISTS ` + config.MatchesTable + `_date_idx ON ` + config.MatchesTable + ` (date)`,
	`CREATE TABLE IF NOT EXISTS ` + config.RankingsTable + ` (
		rank         integer          NOT NULL,
		team         text             NOT NULL PRIMARY KEY,
		code         text,
		points       double precision NOT NULL,
		period_label text             NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ` + config.RunsTable + ` (
		run_id       text        PRIMARY KEY,
		started_at   timestamptz NOT NULL,
		published_at timestamptz NOT NULL DEFAULT NOW(),
		match_rows   integer     NOT NULL,
		report       jsonb       NOT NULL
	)`,
}

// EnsureSchema creates the published tables if they do not exist. It uses a
// dedicated connection so it can run before statements are prepared.
func EnsureSchema(ctx context.Context, dbURL string) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	for _, stmt := range schema {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
