package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATA_DIR", "")
	t.Setenv("MATCH_KEY_POLICY", "")
	t.Setenv("API_FOOTBALL_SEASONS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 210, cfg.RankingMaxPosition)
	assert.Equal(t, 50, cfg.RankingMinPageRows)
	assert.Equal(t, "row_index", cfg.MatchKeyPolicy)
	assert.Equal(t, []int{2022, 2023, 2024}, cfg.APIFootballSeasons)
	assert.True(t, cfg.RepairHistoricalEncoding)
}

func TestLoad_RejectsUnknownKeyPolicy(t *testing.T) {
	t.Setenv("MATCH_KEY_POLICY", "symmetric")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_SeasonsList(t *testing.T) {
	t.Setenv("API_FOOTBALL_SEASONS", "2021, 2022")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []int{2021, 2022}, cfg.APIFootballSeasons)
}

func TestLoad_MalformedSeasonsFallBack(t *testing.T) {
	t.Setenv("API_FOOTBALL_SEASONS", "2021,next")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []int{2022, 2023, 2024}, cfg.APIFootballSeasons)
}

func TestNewPaths(t *testing.T) {
	p := NewPaths("/tmp/run")
	assert.Equal(t, filepath.Join("/tmp/run", "raw", "kaggle"), p.RawHistoricalDir)
	assert.Equal(t, filepath.Join("/tmp/run", "curated", "matches_final_curated.csv"), p.CuratedFinal)
	assert.Equal(t, filepath.Join("/tmp/run", "raw", "api_football", "fixtures", "manifest_fixtures.csv"), p.FixturesManifest)
}
