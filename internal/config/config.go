// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/ingest.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// League registry: international competitions pulled from the live API
// --------------------------------------------------------------------------

type LeagueConfig struct {
	ID   int
	Name string
}

var LeagueRegistry = []LeagueConfig{
	{ID: 1, Name: "World Cup"},
	{ID: 10, Name: "Friendlies"},
	{ID: 5, Name: "UEFA Nations League"},
	{ID: 9, Name: "Copa America"},
	{ID: 4, Name: "Euro Championship"},
	{ID: 960, Name: "Euro Championship - Qualification"},
	{ID: 29, Name: "World Cup - Qualification Africa"},
	{ID: 30, Name: "World Cup - Qualification Asia"},
	{ID: 31, Name: "World Cup - Qualification CONCACAF"},
	{ID: 32, Name: "World Cup - Qualification Europe"},
	{ID: 37, Name: "World Cup - Qualification Intercontinental Play-offs"},
	{ID: 33, Name: "World Cup - Qualification Oceania"},
	{ID: 34, Name: "World Cup - Qualification South America"},
}

// --------------------------------------------------------------------------
// Table names: single source of truth for the published schema
// --------------------------------------------------------------------------

const (
	MatchesTable  = "curated_matches"
	RankingsTable = "ranking_entries"
	RunsTable     = "curation_runs"
)

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Data layout
	DataDir string

	// Ranking scraper
	RankingBaseURL           string
	RankingRequestsPerMinute int
	RankingMaxPosition       int
	RankingMinPageRows       int
	RankingMaxPages          int
	ScraperUserAgent         string

	// Live fixtures API
	APIFootballBaseURL           string
	APIFootballKey               string
	APIFootballRequestsPerMinute int
	APIFootballSeasons           []int

	// Curation policy
	MatchKeyPolicy           string // row_index, tournament, triple
	RepairHistoricalEncoding bool
	RepairLiveEncoding       bool

	// Database (optional for ingest, required for api and --publish)
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir: envOr("DATA_DIR", "data"),

		RankingBaseURL:           envOr("RANKING_BASE_URL", "https://football-ranking.com/fifa-rankings"),
		RankingRequestsPerMinute: envInt("RANKING_REQUESTS_PER_MINUTE", 30),
		RankingMaxPosition:       envInt("RANKING_MAX_POSITION", 210),
		RankingMinPageRows:       envInt("RANKING_MIN_PAGE_ROWS", 50),
		RankingMaxPages:          envInt("RANKING_MAX_PAGES", 20),
		ScraperUserAgent: envOr("SCRAPER_USER_AGENT",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"),

		APIFootballBaseURL:           envOr("API_FOOTBALL_BASE_URL", "https://v3.football.api-sports.io"),
		APIFootballKey:               envOr("API_FOOTBALL_KEY", ""),
		APIFootballRequestsPerMinute: envInt("API_FOOTBALL_REQUESTS_PER_MINUTE", 120),
		APIFootballSeasons:           envIntList("API_FOOTBALL_SEASONS", []int{2022, 2023, 2024}),

		MatchKeyPolicy:           envOr("MATCH_KEY_POLICY", "row_index"),
		RepairHistoricalEncoding: envBool("REPAIR_HISTORICAL_ENCODING", true),
		RepairLiveEncoding:       envBool("REPAIR_LIVE_ENCODING", true),

		DatabaseURL:    envOr("DATABASE_URL", ""),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 5),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}

	if cfg.RankingMaxPosition < 1 {
		return nil, fmt.Errorf("RANKING_MAX_POSITION must be >= 1, got %d", cfg.RankingMaxPosition)
	}
	if cfg.RankingMinPageRows < 1 {
		return nil, fmt.Errorf("RANKING_MIN_PAGE_ROWS must be >= 1, got %d", cfg.RankingMinPageRows)
	}
	switch cfg.MatchKeyPolicy {
	case "row_index", "tournament", "triple":
	default:
		return nil, fmt.Errorf("MATCH_KEY_POLICY must be one of row_index, tournament, triple; got %q", cfg.MatchKeyPolicy)
	}

	return cfg, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Paths returns the on-disk layout rooted at DataDir.
func (c *Config) Paths() Paths {
	return NewPaths(c.DataDir)
}

// --------------------------------------------------------------------------
// Data layout
// --------------------------------------------------------------------------

// Paths is the directory and file layout used by the ingest CLI.
type Paths struct {
	RawHistoricalDir   string
	RawFixturesDir     string
	RawRankingDir      string
	FixturesManifest   string
	ProcessedFixtures  string
	ProcessedRanking   string
	HistoricalMapping  string // historical name -> ranking name
	LiveMapping        string // live API name -> historical name
	CuratedDir         string
	CuratedHistorical  string
	CuratedLive        string
	CuratedFinal       string
	RunReport          string
	ProcessedResults   string
}

func NewPaths(dataDir string) Paths {
	raw := filepath.Join(dataDir, "raw")
	processed := filepath.Join(dataDir, "processed")
	curated := filepath.Join(dataDir, "curated")
	fixtures := filepath.Join(raw, "api_football", "fixtures")
	return Paths{
		RawHistoricalDir:   filepath.Join(raw, "kaggle"),
		RawFixturesDir:     fixtures,
		RawRankingDir:      filepath.Join(raw, "football_ranking"),
		FixturesManifest:   filepath.Join(fixtures, "manifest_fixtures.csv"),
		ProcessedFixtures:  filepath.Join(processed, "api_football", "fixtures_processed.csv"),
		ProcessedRanking:   filepath.Join(processed, "football_ranking", "ranking_processed.csv"),
		HistoricalMapping:  filepath.Join(processed, "mappings", "team_name_mapping.csv"),
		LiveMapping:        filepath.Join(processed, "mappings", "api_to_kaggle_mapping.csv"),
		CuratedDir:         curated,
		CuratedHistorical:  filepath.Join(curated, "kaggle_matches_with_ranking.csv"),
		CuratedLive:        filepath.Join(curated, "api_matches_with_ranking.csv"),
		CuratedFinal:       filepath.Join(curated, "matches_final_curated.csv"),
		RunReport:          filepath.Join(curated, "run_report.json"),
		ProcessedResults:   filepath.Join(processed, "kaggle", "results_processed.csv"),
	}
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

func envIntList(key string, fallback []int) []int {
	parts := envList(key, nil)
	if len(parts) == 0 {
		return fallback
	}
	result := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return fallback
		}
		result = append(result, n)
	}
	return result
}
