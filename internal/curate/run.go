package curate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/albapepper/scoracle-matches/internal/alias"
	"github.com/albapepper/scoracle-matches/internal/artifact"
	"github.com/albapepper/scoracle-matches/internal/config"
	"github.com/albapepper/scoracle-matches/internal/matchkey"
	"github.com/albapepper/scoracle-matches/internal/normalize"
	"github.com/albapepper/scoracle-matches/internal/provider"
	"github.com/albapepper/scoracle-matches/internal/provider/apifootball"
	"github.com/albapepper/scoracle-matches/internal/provider/historical"
	"github.com/albapepper/scoracle-matches/internal/ranking"
	"github.com/albapepper/scoracle-matches/internal/report"
)

// Publisher stores a finished run. *db.Pool implements it.
type Publisher interface {
	Publish(ctx context.Context, rep *report.Report, matches []provider.MatchRecord, snap provider.RankingSnapshot) error
}

// RunOptions select the per-invocation behavior of Run.
type RunOptions struct {
	Options

	// ScrapeRanking fetches a fresh ranking through Fetcher instead of
	// reading the processed ranking artifact.
	ScrapeRanking bool
	Fetcher       ranking.Fetcher

	// Publisher, when set, receives the curated run after artifacts are written.
	Publisher Publisher

	Now func() time.Time
}

// OptionsFromConfig returns the curation options configured in cfg.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	policy, err := matchkey.ParsePolicy(cfg.MatchKeyPolicy)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Policy:           policy,
		RepairHistorical: cfg.RepairHistoricalEncoding,
		RepairLive:       cfg.RepairLiveEncoding,
	}, nil
}

// Run loads every input under cfg.DataDir, curates, and writes the artifacts.
// Missing required inputs and malformed mapping files abort the run; a
// ranking scrape that stops on a fetch error keeps its partial pages and is
// recorded in the report, unless no page was collected at all.
func Run(ctx context.Context, cfg *config.Config, opts RunOptions, logger *slog.Logger) (*Output, *report.Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	start := now().UTC()
	rep := report.New(start.Format("20060102T150405Z"), start)
	paths := cfg.Paths()

	logger.Info("Curation run starting", "run_id", rep.RunID, "data_dir", cfg.DataDir, "policy", opts.Policy)

	// Inputs
	export, err := historical.Load(paths.RawHistoricalDir)
	if err != nil {
		return nil, rep, fmt.Errorf("load historical export: %w", err)
	}
	batches, err := apifootball.LoadPayloads(paths.RawFixturesDir, paths.FixturesManifest)
	if err != nil {
		return nil, rep, fmt.Errorf("load live fixtures: %w", err)
	}
	if err := apifootball.WriteProcessed(paths.ProcessedFixtures, apifootball.Flatten(batches)); err != nil {
		return nil, rep, err
	}

	histToRank, err := alias.Load(paths.HistoricalMapping, alias.HistoricalToRanking, normalize.For(opts.RepairHistorical))
	if err != nil {
		return nil, rep, err
	}
	liveToHist, err := alias.Load(paths.LiveMapping, alias.LiveToHistorical, normalize.For(opts.RepairLive))
	if err != nil {
		return nil, rep, err
	}
	for _, m := range []*alias.Mapping{histToRank, liveToHist} {
		logger.Info("Alias mapping loaded", "pair", m.Pair, "rules", m.Len(), "conflicts", m.Conflicts())
		if m.Conflicts() > 0 {
			rep.Warnf("alias", "mapping_conflicts", m.Conflicts(),
				"%s mapping repeats %d names with different targets", m.Pair, m.Conflicts())
		}
	}

	snap, err := loadRanking(ctx, cfg, opts, rep, logger)
	if err != nil {
		return nil, rep, err
	}

	// Curate
	out := Curate(Inputs{
		Historical:          export,
		Live:                batches,
		Ranking:             snap,
		HistoricalToRanking: histToRank,
		LiveToHistorical:    liveToHist,
	}, opts.Options, rep, logger)

	// Artifacts
	writes := []struct {
		path string
		rows []provider.MatchRecord
	}{
		{paths.ProcessedResults, out.Base},
		{paths.CuratedHistorical, out.Historical},
		{paths.CuratedLive, out.Live},
		{paths.CuratedFinal, out.Final},
	}
	for _, w := range writes {
		if err := artifact.WriteMatches(w.path, w.rows); err != nil {
			return out, rep, err
		}
	}
	if err := artifact.WriteJSON(paths.RunReport, rep); err != nil {
		return out, rep, err
	}
	logger.Info("Artifacts written", "dir", paths.CuratedDir)

	if opts.Publisher != nil {
		if err := opts.Publisher.Publish(ctx, rep, out.Final, out.Ranking); err != nil {
			return out, rep, fmt.Errorf("publish run: %w", err)
		}
		logger.Info("Run published", "run_id", rep.RunID, "rows", len(out.Final))
	}

	return out, rep, nil
}

func loadRanking(ctx context.Context, cfg *config.Config, opts RunOptions, rep *report.Report, logger *slog.Logger) (provider.RankingSnapshot, error) {
	paths := cfg.Paths()
	if opts.ScrapeRanking {
		if opts.Fetcher == nil {
			return provider.RankingSnapshot{}, errors.New("ranking scrape requested without a fetcher")
		}
		sr, err := ScrapeRanking(ctx, opts.Fetcher, cfg, logger)
		if err != nil && !errors.Is(err, ranking.ErrFetch) {
			return provider.RankingSnapshot{}, err
		}
		if len(sr.Result.Pages) == 0 {
			if err == nil {
				err = fmt.Errorf("ranking scrape collected no pages (stop: %s)", sr.Result.Stop)
			}
			return provider.RankingSnapshot{}, err
		}
		if err != nil {
			rep.AddErrorf("ranking scrape stopped early, keeping %d pages: %v", len(sr.Result.Pages), err)
		}
		recordScrape(sr, rep)
		return sr.Processed, nil
	}

	snap, err := artifact.ReadRanking(paths.ProcessedRanking)
	if errors.Is(err, fs.ErrNotExist) {
		return provider.RankingSnapshot{}, fmt.Errorf("%w: processed ranking %s (run with --scrape-ranking)",
			historical.ErrMissingInput, paths.ProcessedRanking)
	}
	if err != nil {
		return provider.RankingSnapshot{}, err
	}
	rep.SetRankingValidation(ranking.Validate(snap.Entries, cfg.RankingMaxPosition))
	logger.Info("Ranking loaded", "path", paths.ProcessedRanking, "entries", len(snap.Entries), "period", snap.PeriodLabel)
	return snap, nil
}

func recordScrape(sr *Scrape, rep *report.Report) {
	rep.SetRankingValidation(sr.Validation)
	for reason, n := range sr.Result.Rejected() {
		rep.Exclude("ranking", reason, n)
	}
	if n := rep.Excluded("ranking"); n > 0 {
		rep.Warnf("ranking", "rejected_rows", n, "%d ranking rows rejected", n)
	}
	rep.Infof("ranking", "scrape_stop", len(sr.Result.Pages),
		"scrape stopped after %d pages: %s", len(sr.Result.Pages), sr.Result.Stop)
}

// --------------------------------------------------------------------------
// Ranking scrape
// --------------------------------------------------------------------------

// Scrape is the outcome of a ranking scrape.
type Scrape struct {
	Result     ranking.Result
	Raw        provider.RankingSnapshot
	Processed  provider.RankingSnapshot
	Validation ranking.Validation
	Files      []string
}

// ScrapeRanking paginates the ranking source, writes one raw table per page
// and the processed ranking, and validates the merged snapshot. When
// pagination stops on a fetch error, the pages collected so far are still
// written and the returned error wraps ranking.ErrFetch. When no page was
// collected the previous processed ranking is kept.
func ScrapeRanking(ctx context.Context, fetcher ranking.Fetcher, cfg *config.Config, logger *slog.Logger) (*Scrape, error) {
	if logger == nil {
		logger = slog.Default()
	}
	paths := cfg.Paths()
	scraper := ranking.NewScraper(fetcher, ranking.Options{
		MaxPosition: cfg.RankingMaxPosition,
		MinPageRows: cfg.RankingMinPageRows,
		MaxPages:    cfg.RankingMaxPages,
	}, logger)

	res, scrapeErr := scraper.Scrape(ctx)
	s := &Scrape{Result: res, Raw: res.Snapshot()}

	today := provider.DateOf(time.Now())
	for _, p := range res.Pages {
		name := artifact.RawRankingPageName(today, p.Period, p.Index)
		path := filepath.Join(paths.RawRankingDir, name)
		if err := artifact.WriteRanking(path, provider.RankingSnapshot{PeriodLabel: p.Period, Entries: p.Entries}); err != nil {
			return s, err
		}
		s.Files = append(s.Files, path)
	}

	s.Validation = ranking.Validate(s.Raw.Entries, cfg.RankingMaxPosition)
	s.Processed, _ = ranking.Process(s.Raw)
	if len(res.Pages) == 0 {
		logger.Warn("Ranking scrape collected no pages, processed ranking left untouched",
			"stop", res.Stop, "path", paths.ProcessedRanking)
		return s, scrapeErr
	}
	if err := artifact.WriteRanking(paths.ProcessedRanking, s.Processed); err != nil {
		return s, err
	}

	logger.Info("Ranking scrape done",
		"pages", len(res.Pages), "stop", res.Stop, "entries", len(s.Raw.Entries),
		"teams", len(s.Processed.Entries), "period", s.Raw.PeriodLabel,
		"missing", len(s.Validation.Missing), "duplicated", len(s.Validation.Duplicated))
	return s, scrapeErr
}
