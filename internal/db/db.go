// Package db provides a pgxpool-based connection pool with prepared statement
// registration, schema bootstrap and publication of curated runs.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/scoracle-matches/internal/config"
)

// ErrNoDatabaseURL is returned by New when DATABASE_URL is not set.
var ErrNoDatabaseURL = errors.New("DATABASE_URL is not set")

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool. The schema is created
// before prepared statements are registered on any connection.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, ErrNoDatabaseURL
	}
	if err := EnsureSchema(ctx, cfg.DatabaseURL); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// Statement names used by the API handlers.
const (
	StmtMatches     = "api_matches"
	StmtMatchByKey  = "api_match_by_key"
	StmtRankings    = "api_rankings"
	StmtLatestRun   = "api_latest_run"
	StmtPruneRuns   = "prune_runs"
	StmtLatestRunID = "latest_run_id"
	StmtHealthCheck = "health_check"
)

// Statements returns the SQL of every prepared statement by name. All API
// statements return one JSON value so handlers can pass the bytes through.
func Statements() map[string]string {
	return map[string]string{
		StmtHealthCheck: "SELECT 1",

		// $1 source, $2 team, $3 from, $4 to, $5 limit; NULL disables a filter.
		StmtMatches: `SELECT COALESCE(json_agg(row_to_json(m) ORDER BY m.date NULLS LAST, m.source, m.row_index), '[]'::json)
			FROM (
				SELECT * FROM ` + config.MatchesTable + `
				WHERE ($1::text IS NULL OR source = $1)
				  AND ($2::text IS NULL OR home_team = $2 OR away_team = $2)
				  AND ($3::date IS NULL OR date >= $3)
				  AND ($4::date IS NULL OR date <= $4)
				ORDER BY date NULLS LAST, source, row_index
				LIMIT $5
			) m`,

		// A bare-triple key can be shared by several rows, so this returns an array.
		StmtMatchByKey: `SELECT json_agg(row_to_json(m) ORDER BY m.source, m.row_index)
			FROM ` + config.MatchesTable + ` m WHERE m.match_key = $1`,

		StmtRankings: `SELECT json_build_object(
				'period_label', MIN(r.period_label),
				'entries', COALESCE(json_agg(json_build_object(
					'rank', r.rank, 'team', r.team, 'code', r.code, 'points', r.points
				) ORDER BY r.rank), '[]'::json))
			FROM ` + config.RankingsTable + ` r`,

		StmtLatestRunID: `SELECT run_id FROM ` + config.RunsTable + ` ORDER BY published_at DESC LIMIT 1`,

		StmtLatestRun: `SELECT report FROM ` + config.RunsTable + ` ORDER BY published_at DESC LIMIT 1`,

		// $1 number of most recent runs to keep.
		StmtPruneRuns: `DELETE FROM ` + config.RunsTable + ` WHERE run_id NOT IN (
				SELECT run_id FROM ` + config.RunsTable + ` ORDER BY published_at DESC LIMIT $1
			)`,
	}
}

func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	for name, sql := range Statements() {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
