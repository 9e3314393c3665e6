// Command ingest is the Scoracle match curation CLI.
//
// Usage:
//
//	scoracle-ingest ranking scrape
//	scoracle-ingest fixtures fetch --league 1 --league 10 --season 2024
//	scoracle-ingest curate --scrape-ranking --key-policy tournament --publish
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/scoracle-matches/internal/config"
	"github.com/albapepper/scoracle-matches/internal/curate"
	"github.com/albapepper/scoracle-matches/internal/db"
	"github.com/albapepper/scoracle-matches/internal/matchkey"
	"github.com/albapepper/scoracle-matches/internal/provider/apifootball"
	"github.com/albapepper/scoracle-matches/internal/provider/footballranking"
	"github.com/albapepper/scoracle-matches/internal/ranking"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	var dataDir string
	root := &cobra.Command{
		Use:   "scoracle-ingest",
		Short: "Scoracle international match curation CLI",
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides DATA_DIR)")

	root.AddCommand(rankingCmd(&dataDir))
	root.AddCommand(fixturesCmd(&dataDir))
	root.AddCommand(curateCmd(&dataDir))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// ranking command
// --------------------------------------------------------------------------

func rankingCmd(dataDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "Team ranking snapshots",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "scrape",
		Short: "Scrape every ranking page and write raw and processed snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*dataDir, func(ctx context.Context, cfg *config.Config) error {
				start := time.Now()
				s, err := curate.ScrapeRanking(ctx, rankingFetcher(cfg), cfg, logger)
				if err != nil && !errors.Is(err, ranking.ErrFetch) {
					return err
				}
				if err != nil {
					if len(s.Result.Pages) == 0 {
						return err
					}
					logger.Warn("Ranking scrape stopped early, partial snapshot kept", "error", err)
				}
				v := s.Validation
				logger.Info("Ranking scrape finished",
					"duration", time.Since(start).Round(time.Second),
					"pages", len(s.Result.Pages), "files", len(s.Files),
					"total", v.Total, "unique_positions", v.UniquePositions,
					"min_position", v.MinPosition, "max_position", v.MaxPosition,
					"min_points", v.MinPoints, "max_points", v.MaxPoints,
					"contiguous", v.Contiguous, "ok", v.OK())
				if len(v.Missing) > 0 {
					logger.Warn("Missing ranking positions", "positions", v.Missing)
				}
				if len(v.Duplicated) > 0 {
					logger.Warn("Duplicated ranking positions", "positions", v.Duplicated)
				}
				return nil
			})
		},
	})
	return cmd
}

func rankingFetcher(cfg *config.Config) ranking.Fetcher {
	return footballranking.NewClient(cfg.RankingBaseURL, cfg.ScraperUserAgent, cfg.RankingRequestsPerMinute, logger)
}

// --------------------------------------------------------------------------
// fixtures command
// --------------------------------------------------------------------------

func fixturesCmd(dataDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Live API fixture snapshots",
	}
	cmd.AddCommand(fixturesFetchCmd(dataDir))
	return cmd
}

func fixturesFetchCmd(dataDir *string) *cobra.Command {
	var (
		leagueIDs []int
		seasons   []int
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch fixtures for the configured leagues and seasons",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*dataDir, func(ctx context.Context, cfg *config.Config) error {
				if cfg.APIFootballKey == "" {
					return fmt.Errorf("API_FOOTBALL_KEY is required")
				}
				leagues, err := selectLeagues(leagueIDs)
				if err != nil {
					return err
				}
				if len(seasons) == 0 {
					seasons = cfg.APIFootballSeasons
				}

				paths := cfg.Paths()
				client := apifootball.NewClient(cfg.APIFootballBaseURL, cfg.APIFootballKey, cfg.APIFootballRequestsPerMinute, logger)
				fetcher := apifootball.NewFetcher(client, paths.RawFixturesDir, logger)

				start := time.Now()
				result, err := fetcher.Fetch(ctx, leagues, seasons, paths.FixturesManifest)
				if err != nil {
					return err
				}
				logger.Info("Fixtures fetch finished",
					"duration", time.Since(start).Round(time.Second),
					"manifest", paths.FixturesManifest,
					"summary", result.Summary())
				return nil
			})
		},
	}
	cmd.Flags().IntSliceVar(&leagueIDs, "league", nil, "League ID to fetch (repeatable); empty = whole registry")
	cmd.Flags().IntSliceVar(&seasons, "season", nil, "Season to fetch (repeatable); empty = API_FOOTBALL_SEASONS")
	return cmd
}

// selectLeagues returns the registry entries for ids, or the whole registry.
func selectLeagues(ids []int) ([]config.LeagueConfig, error) {
	if len(ids) == 0 {
		return config.LeagueRegistry, nil
	}
	byID := make(map[int]config.LeagueConfig, len(config.LeagueRegistry))
	for _, l := range config.LeagueRegistry {
		byID[l.ID] = l
	}
	out := make([]config.LeagueConfig, 0, len(ids))
	for _, id := range ids {
		l, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("league %d is not in the registry", id)
		}
		out = append(out, l)
	}
	return out, nil
}

// --------------------------------------------------------------------------
// curate command
// --------------------------------------------------------------------------

func curateCmd(dataDir *string) *cobra.Command {
	var (
		scrapeRanking bool
		keyPolicy     string
		publish       bool
	)
	cmd := &cobra.Command{
		Use:   "curate",
		Short: "Merge all sources into the curated match table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(*dataDir, func(ctx context.Context, cfg *config.Config) error {
				if keyPolicy != "" {
					cfg.MatchKeyPolicy = keyPolicy
				}
				base, err := curate.OptionsFromConfig(cfg)
				if err != nil {
					return err
				}
				opts := curate.RunOptions{Options: base, ScrapeRanking: scrapeRanking}
				if scrapeRanking {
					opts.Fetcher = rankingFetcher(cfg)
				}

				if publish {
					pool, err := db.New(ctx, cfg)
					if err != nil {
						return fmt.Errorf("connect to database: %w", err)
					}
					defer pool.Close()
					opts.Publisher = pool
				}

				start := time.Now()
				_, rep, err := curate.Run(ctx, cfg, opts, logger)
				if err != nil {
					return err
				}
				logger.Info("Curation finished",
					"run_id", rep.RunID,
					"duration", time.Since(start).Round(time.Second),
					"summary", rep.Summary())
				for _, f := range rep.Findings {
					logger.Info("finding", "severity", f.Severity, "source", f.Source, "code", f.Code, "count", f.Count, "message", f.Message)
				}
				for _, e := range rep.Errors {
					logger.Error("run error", "error", e)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&scrapeRanking, "scrape-ranking", false, "Scrape a fresh ranking instead of reading the processed one")
	cmd.Flags().StringVar(&keyPolicy, "key-policy", "",
		fmt.Sprintf("Published match key policy (%s, %s, %s); empty = MATCH_KEY_POLICY",
			matchkey.PolicyRowIndex, matchkey.PolicyTournament, matchkey.PolicyTriple))
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish the run to Postgres (requires DATABASE_URL)")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// run handles config loading and context cancellation.
func run(dataDir string, fn func(ctx context.Context, cfg *config.Config) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return fn(ctx, cfg)
}
