package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/albapepper/scoracle-matches/internal/provider"
)

// ErrFetch wraps any failure to retrieve a ranking page.
var ErrFetch = errors.New("ranking fetch")

// Fetcher retrieves the HTML of one ranking page (1-based).
type Fetcher interface {
	FetchPage(ctx context.Context, page int) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, page int) (string, error)

// FetchPage calls f.
func (f FetcherFunc) FetchPage(ctx context.Context, page int) (string, error) {
	return f(ctx, page)
}

// Options bound a scrape.
type Options struct {
	MaxPosition int // rows outside 1..MaxPosition are rejected
	MinPageRows int // a page with fewer rows is the last page
	MaxPages    int // hard cap on pages requested
}

// StopReason says why pagination ended.
type StopReason string

const (
	StopNoTable    StopReason = "no_table"
	StopEmptyPage  StopReason = "empty_page"
	StopShortPage  StopReason = "short_page"
	StopMaxPages   StopReason = "max_pages"
	StopFetchError StopReason = "fetch_error"
	StopCancelled  StopReason = "cancelled"
)

// Page is the parsed content of one fetched page.
type Page struct {
	Index    int
	Period   string
	Entries  []provider.RankingEntry
	Rejected map[string]int
}

// Result collects every page parsed before pagination stopped.
type Result struct {
	Pages []Page
	Stop  StopReason
}

// Rejected sums row rejections over all pages by reason.
func (r Result) Rejected() map[string]int {
	out := map[string]int{}
	for _, p := range r.Pages {
		for reason, n := range p.Rejected {
			out[reason] += n
		}
	}
	return out
}

// Snapshot merges the pages into one snapshot.
func (r Result) Snapshot() provider.RankingSnapshot {
	return Merge(r.Pages)
}

// Scraper walks ranking pages until the source runs out.
type Scraper struct {
	fetcher Fetcher
	opts    Options
	logger  *slog.Logger
}

// NewScraper creates a scraper. Zero options fall back to the defaults of the
// public ranking site.
func NewScraper(f Fetcher, opts Options, logger *slog.Logger) *Scraper {
	if opts.MaxPosition <= 0 {
		opts.MaxPosition = 210
	}
	if opts.MinPageRows <= 0 {
		opts.MinPageRows = 50
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{fetcher: f, opts: opts, logger: logger}
}

// Scrape fetches pages 1, 2, ... and stops on a page without a table, an
// empty page, a page shorter than MinPageRows, or MaxPages. A fetch error
// also stops pagination: the pages parsed so far are returned together with
// an error wrapping ErrFetch.
func (s *Scraper) Scrape(ctx context.Context) (Result, error) {
	var res Result

	for page := 1; ; page++ {
		if page > s.opts.MaxPages {
			res.Stop = StopMaxPages
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			res.Stop = StopCancelled
			return res, err
		}

		body, err := s.fetcher.FetchPage(ctx, page)
		if err != nil {
			res.Stop = StopFetchError
			return res, fmt.Errorf("%w: page %d: %w", ErrFetch, page, err)
		}

		p, stop := s.parsePage(page, body)
		if stop == StopNoTable {
			s.logger.Info("No ranking table, stopping", "page", page)
			res.Stop = stop
			return res, nil
		}
		if len(p.Entries) == 0 {
			s.logger.Info("Empty ranking page, stopping", "page", page)
			res.Stop = StopEmptyPage
			return res, nil
		}

		res.Pages = append(res.Pages, p)
		s.logger.Info("Parsed ranking page",
			"page", page, "rows", len(p.Entries), "rejected", TablePage{Rejected: p.Rejected}.RejectedCount(),
			"period", p.Period)

		if len(p.Entries) < s.opts.MinPageRows {
			res.Stop = StopShortPage
			return res, nil
		}
	}
}

func (s *Scraper) parsePage(index int, body string) (Page, StopReason) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Page{Index: index}, StopNoTable
	}
	table := FindTable(doc)
	if table == nil {
		return Page{Index: index}, StopNoTable
	}
	tp := ExtractTable(table, s.opts.MaxPosition)
	return Page{
		Index:    index,
		Period:   PeriodLabel(doc),
		Entries:  tp.Entries,
		Rejected: tp.Rejected,
	}, ""
}

// Merge concatenates pages into one snapshot ordered by position. The period
// label is the first known label across pages.
func Merge(pages []Page) provider.RankingSnapshot {
	snap := provider.RankingSnapshot{PeriodLabel: provider.UnknownPeriod}
	for _, p := range pages {
		if snap.PeriodLabel == provider.UnknownPeriod && p.Period != "" && p.Period != provider.UnknownPeriod {
			snap.PeriodLabel = p.Period
		}
		snap.Entries = append(snap.Entries, p.Entries...)
	}
	sort.SliceStable(snap.Entries, func(i, j int) bool {
		return snap.Entries[i].Position < snap.Entries[j].Position
	})
	return snap
}

// Process turns a raw snapshot into the processed form used for joins: the
// "(XXX)" code suffix is stripped from team names and only the first entry
// per team is kept. It returns how many entries were dropped.
func Process(snap provider.RankingSnapshot) (provider.RankingSnapshot, int) {
	out := provider.RankingSnapshot{PeriodLabel: snap.PeriodLabel}
	seen := make(map[string]bool, len(snap.Entries))
	dropped := 0
	for _, e := range snap.Entries {
		e.Team = StripTeamCode(e.Team)
		if e.Team == "" || seen[e.Team] {
			dropped++
			continue
		}
		seen[e.Team] = true
		out.Entries = append(out.Entries, e)
	}
	return out, dropped
}
