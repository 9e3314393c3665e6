package apifootball

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/albapepper/scoracle-matches/internal/artifact"
	"github.com/albapepper/scoracle-matches/internal/config"
)

// Manifest statuses.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

const timestampLayout = "2006-01-02_150405"

// FixtureSource returns the raw /fixtures body for a league and season.
// *Client implements it.
type FixtureSource interface {
	Fixtures(ctx context.Context, leagueID, season int) ([]byte, error)
}

// ManifestRecord describes one (league, season) extraction.
type ManifestRecord struct {
	RunID            string
	ExtractTimestamp string
	LeagueID         int
	LeagueName       string
	Season           int
	Endpoint         string
	Params           string
	ResultsField     string
	PagingField      string
	ResponseCount    int
	Status           string
	Error            string
	RawFilePath      string
}

// ManifestColumns is the column order of the manifest file.
var ManifestColumns = []string{
	"run_id", "extract_timestamp", "league_id", "league_name", "season",
	"endpoint", "params", "results_field", "paging_field", "response_count",
	"status", "error", "raw_file_path",
}

// FetchResult tracks the outcome of a fetch run.
type FetchResult struct {
	RunID    string
	Manifest []ManifestRecord
	OK       int
	Failed   int
	Fixtures int
}

// Summary returns a human-readable summary of the fetch.
func (r *FetchResult) Summary() string {
	return fmt.Sprintf("run=%s ok=%d failed=%d fixtures=%d", r.RunID, r.OK, r.Failed, r.Fixtures)
}

// Fetcher writes raw fixture snapshots to disk.
type Fetcher struct {
	source FixtureSource
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// NewFetcher creates a fetcher that stores payloads under dir.
func NewFetcher(source FixtureSource, dir string, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{source: source, dir: dir, now: time.Now, logger: logger}
}

// Fetch requests every (league, season) pair, writes each payload (or an
// ERROR_ payload on failure) under a per-league folder, and writes the
// manifest to manifestPath. A failed pair never stops the run; only a
// failure to write to disk does.
func (f *Fetcher) Fetch(ctx context.Context, leagues []config.LeagueConfig, seasons []int, manifestPath string) (*FetchResult, error) {
	result := &FetchResult{RunID: f.now().Format(timestampLayout)}

	for _, league := range leagues {
		folder := filepath.Join(f.dir, fmt.Sprintf("league_%d_%s", league.ID, artifact.FileSafe(league.Name)))

		for _, season := range seasons {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			rec, err := f.fetchOne(ctx, folder, league, season)
			if err != nil {
				return result, err
			}
			rec.RunID = result.RunID
			result.Manifest = append(result.Manifest, rec)

			if rec.Status == StatusOK {
				result.OK++
				result.Fixtures += rec.ResponseCount
				f.logger.Info("Fetched fixtures",
					"league", league.ID, "season", season, "fixtures", rec.ResponseCount, "file", rec.RawFilePath)
			} else {
				result.Failed++
				f.logger.Warn("Fixture fetch failed",
					"league", league.ID, "season", season, "error", rec.Error)
			}
		}
	}

	if err := WriteManifest(manifestPath, result.Manifest); err != nil {
		return result, err
	}
	return result, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, folder string, league config.LeagueConfig, season int) (ManifestRecord, error) {
	ts := f.now().Format(timestampLayout)
	params, _ := json.Marshal(map[string]int{"league": league.ID, "season": season})
	rec := ManifestRecord{
		ExtractTimestamp: ts,
		LeagueID:         league.ID,
		LeagueName:       league.Name,
		Season:           season,
		Endpoint:         FixturesEndpoint,
		Params:           string(params),
		Status:           StatusOK,
	}

	body, err := f.source.Fixtures(ctx, league.ID, season)
	if err != nil {
		rec.Status = StatusError
		rec.Error = err.Error()
		rec.RawFilePath = filepath.Join(folder, fmt.Sprintf("ERROR_fixtures_league_%d_season_%d_%s.json", league.ID, season, ts))
		errPayload := map[string]interface{}{
			"endpoint":  FixturesEndpoint,
			"params":    map[string]int{"league": league.ID, "season": season},
			"error":     rec.Error,
			"timestamp": ts,
		}
		if werr := artifact.WriteJSON(rec.RawFilePath, errPayload); werr != nil {
			return rec, werr
		}
		return rec, nil
	}

	var envelope payload
	if err := json.Unmarshal(body, &envelope); err == nil {
		rec.ResponseCount = len(envelope.Response)
		if envelope.Results != nil {
			rec.ResultsField = fmt.Sprint(envelope.Results)
		}
		if len(envelope.Paging) > 0 && string(envelope.Paging) != "null" {
			rec.PagingField = string(envelope.Paging)
		}
	}

	rec.RawFilePath = filepath.Join(folder, fmt.Sprintf("fixtures_league_%d_season_%d_%s.json", league.ID, season, ts))
	if err := artifact.WriteRaw(rec.RawFilePath, body); err != nil {
		return rec, err
	}
	return rec, nil
}

// WriteManifest writes the manifest table.
func WriteManifest(path string, records []ManifestRecord) error {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			r.RunID, r.ExtractTimestamp, strconv.Itoa(r.LeagueID), r.LeagueName, strconv.Itoa(r.Season),
			r.Endpoint, r.Params, r.ResultsField, r.PagingField, strconv.Itoa(r.ResponseCount),
			r.Status, r.Error, r.RawFilePath,
		}
	}
	return artifact.WriteCSV(path, ManifestColumns, rows)
}

// ReadManifest reads a manifest written by WriteManifest.
func ReadManifest(path string) ([]ManifestRecord, error) {
	t, err := artifact.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	if missing := t.Missing("league_id", "season", "status", "raw_file_path"); len(missing) > 0 {
		return nil, fmt.Errorf("manifest %s: missing columns %v", path, missing)
	}

	out := make([]ManifestRecord, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		leagueID, _ := strconv.Atoi(t.Get(i, "league_id"))
		season, _ := strconv.Atoi(t.Get(i, "season"))
		count, _ := strconv.Atoi(t.Get(i, "response_count"))
		out = append(out, ManifestRecord{
			RunID:            t.Get(i, "run_id"),
			ExtractTimestamp: t.Get(i, "extract_timestamp"),
			LeagueID:         leagueID,
			LeagueName:       t.Get(i, "league_name"),
			Season:           season,
			Endpoint:         t.Get(i, "endpoint"),
			Params:           t.Get(i, "params"),
			ResultsField:     t.Get(i, "results_field"),
			PagingField:      t.Get(i, "paging_field"),
			ResponseCount:    count,
			Status:           t.Get(i, "status"),
			Error:            t.Get(i, "error"),
			RawFilePath:      t.Get(i, "raw_file_path"),
		})
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Loading
// --------------------------------------------------------------------------

// LoadPayloads parses every stored payload. When the manifest exists only its
// OK rows are read; otherwise every fixtures_*.json file under dir is. A
// payload that cannot be read or decoded aborts loading with an error naming
// the league, season and file.
func LoadPayloads(dir, manifestPath string) ([]Batch, error) {
	refs, err := payloadRefs(dir, manifestPath)
	if err != nil {
		return nil, err
	}

	batches := make([]Batch, 0, len(refs))
	for _, ref := range refs {
		body, err := os.ReadFile(ref.Path)
		if err != nil {
			return nil, fmt.Errorf("read fixtures payload (%s): %w", ref, err)
		}
		b, err := ParsePayload(body, ref)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, nil
}

func payloadRefs(dir, manifestPath string) ([]SourceRef, error) {
	records, err := ReadManifest(manifestPath)
	switch {
	case err == nil:
		var refs []SourceRef
		for _, r := range records {
			if r.Status != StatusOK || r.RawFilePath == "" {
				continue
			}
			refs = append(refs, SourceRef{LeagueID: r.LeagueID, Season: r.Season, Path: r.RawFilePath})
		}
		return refs, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var refs []SourceRef
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		name := d.Name()
		if d.IsDir() || !strings.HasPrefix(name, "fixtures_") || !strings.HasSuffix(name, ".json") {
			return nil
		}
		ref := SourceRef{Path: path}
		ref.LeagueID, ref.Season = refFromName(name)
		refs = append(refs, ref)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan payloads %s: %w", dir, err)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return refs, nil
}

// refFromName reads league and season from
// fixtures_league_{id}_season_{season}_{ts}.json.
func refFromName(name string) (league, season int) {
	parts := strings.Split(strings.TrimSuffix(name, ".json"), "_")
	for i := 0; i+1 < len(parts); i++ {
		switch parts[i] {
		case "league":
			league, _ = strconv.Atoi(parts[i+1])
		case "season":
			season, _ = strconv.Atoi(parts[i+1])
		}
	}
	return league, season
}

// --------------------------------------------------------------------------
// Processed table
// --------------------------------------------------------------------------

// ProcessedColumns is the column order of the processed fixtures table.
var ProcessedColumns = []string{
	"fixture_id", "date", "home_team", "away_team", "home_score", "away_score",
	"tournament", "league_id", "season", "source",
}

// WriteProcessed writes the flattened fixtures of all batches.
func WriteProcessed(path string, fixtures []Fixture) error {
	rows := make([][]string, len(fixtures))
	for i, f := range fixtures {
		rows[i] = []string{
			strconv.Itoa(f.FixtureID), f.Date.String(), f.HomeTeam, f.AwayTeam,
			itoa(f.HomeGoals), itoa(f.AwayGoals), f.League, itoa(f.LeagueID), itoa(f.Season),
			"api_football",
		}
	}
	return artifact.WriteCSV(path, ProcessedColumns, rows)
}

// Flatten concatenates the fixtures of all batches in load order.
func Flatten(batches []Batch) []Fixture {
	var out []Fixture
	for _, b := range batches {
		out = append(out, b.Fixtures...)
	}
	return out
}

func itoa(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
