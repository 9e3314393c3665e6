// Package curate runs the match curation pipeline end to end.
//
// Curate is the in-memory core: it takes loaded inputs and returns the
// curated tables. Run wraps it with input loading, artifact writing and the
// optional database publication.
package curate

import (
	"log/slog"

	"github.com/albapepper/scoracle-matches/internal/alias"
	"github.com/albapepper/scoracle-matches/internal/matchkey"
	"github.com/albapepper/scoracle-matches/internal/merge"
	"github.com/albapepper/scoracle-matches/internal/normalize"
	"github.com/albapepper/scoracle-matches/internal/outcome"
	"github.com/albapepper/scoracle-matches/internal/provider"
	"github.com/albapepper/scoracle-matches/internal/provider/apifootball"
	"github.com/albapepper/scoracle-matches/internal/provider/historical"
	"github.com/albapepper/scoracle-matches/internal/ranking"
	"github.com/albapepper/scoracle-matches/internal/report"
)

// Inputs are the loaded sources of one run. A nil mapping means no aliases.
type Inputs struct {
	Historical *historical.Export
	Live       []apifootball.Batch
	Ranking    provider.RankingSnapshot

	HistoricalToRanking *alias.Mapping
	LiveToHistorical    *alias.Mapping
}

// Options control name handling and published identity.
type Options struct {
	Policy           matchkey.Policy
	RepairHistorical bool
	RepairLive       bool
}

// Output holds the curated tables of a run.
type Output struct {
	Base       []provider.MatchRecord // historical rows before enrichment
	Historical []provider.MatchRecord
	Live       []provider.MatchRecord
	Final      []provider.MatchRecord
	Ranking    provider.RankingSnapshot // processed snapshot used for the joins
}

// Curate merges the inputs into the curated tables. Diagnostics go to rep;
// Curate itself never fails.
func Curate(in Inputs, opts Options, rep *report.Report, logger *slog.Logger) *Output {
	if logger == nil {
		logger = slog.Default()
	}
	histNorm := normalize.For(opts.RepairHistorical)
	liveNorm := normalize.For(opts.RepairLive)
	out := &Output{}

	// 1. Historical base rows and event-level enrichment
	logger.Info("Phase 1/5: Joining historical events...")
	export := in.Historical
	if export == nil {
		export = &historical.Export{}
	}
	out.Base = merge.BaseRecords(export.Results, histNorm)
	rep.SetRows("results", len(out.Base))
	recordResultStats(export.ResultStats, rep)

	hist := merge.JoinShootouts(out.Base, export.Shootouts, histNorm, rep)
	aggs, unjoinable := merge.AggregateGoals(export.Goals, histNorm)
	if unjoinable > 0 {
		rep.Warnf("goalscorers", "unknown_date", unjoinable,
			"%d goal events with unknown date cannot be joined", unjoinable)
	}
	hist = merge.JoinGoals(hist, aggs, rep)
	logger.Info("Historical events done", "rows", len(hist), "absent_goal_aggregates", rep.AbsentGoals)

	// 2. Live fixtures
	logger.Info("Phase 2/5: Reshaping live fixtures...")
	for _, b := range in.Live {
		for reason, n := range b.Excluded {
			rep.Exclude(string(provider.SourceLive), reason, n)
		}
	}
	if n := rep.Excluded(string(provider.SourceLive)); n > 0 {
		rep.Warnf(string(provider.SourceLive), "excluded_fixtures", n,
			"%d malformed fixtures excluded", n)
	}
	live := merge.ReshapeFixtures(apifootball.Flatten(in.Live), liveNorm)
	rep.SetRows("fixtures", len(live))
	logger.Info("Live fixtures done", "rows", len(live), "excluded", rep.Excluded(string(provider.SourceLive)))

	// 3. Alias resolution
	logger.Info("Phase 3/5: Resolving team names...")
	histTracker, liveTracker := alias.NewTracker(), alias.NewTracker()
	hist = merge.ResolveTeams(hist, alias.Chain{in.HistoricalToRanking}, histTracker)
	live = merge.ResolveTeams(live, alias.Chain{in.LiveToHistorical, in.HistoricalToRanking}, liveTracker)
	rep.AliasUsage = append(rep.AliasUsage,
		aliasUsage(merge.FamilyHistorical, histTracker),
		aliasUsage(merge.FamilyLive, liveTracker))
	logger.Info("Team names done",
		"historical_mapped", histTracker.Mapped, "live_mapped", liveTracker.Mapped)

	// 4. Ranking joins
	logger.Info("Phase 4/5: Joining rankings...")
	processed, dropped := ranking.Process(in.Ranking)
	if dropped > 0 {
		rep.Infof("ranking", "duplicate_ranking_teams", dropped,
			"%d ranking entries repeat a team and were dropped", dropped)
	}
	out.Ranking = processed
	rep.SetRows("ranking", len(processed.Entries))
	idx := merge.NewRankingIndex(processed, histNorm)
	hist = merge.JoinRankings(hist, idx, merge.FamilyHistorical, rep)
	live = merge.JoinRankings(live, idx, merge.FamilyLive, rep)
	for _, family := range []string{merge.FamilyHistorical, merge.FamilyLive} {
		if m, ok := rep.MatchRate(family); ok {
			logger.Info("Ranking match rate", "family", family,
				"home", m.HomeRate(), "away", m.AwayRate(), "both", m.BothRate())
		}
	}

	// 5. Keys, outcomes, concatenation
	logger.Info("Phase 5/5: Publishing keys and outcomes...")
	out.Historical = outcome.Apply(merge.AssignKeys(hist, opts.Policy))
	out.Live = outcome.Apply(merge.AssignKeys(live, opts.Policy))
	out.Final = merge.Concat(rep, out.Historical, out.Live)
	rep.SetRows("curated_historical", len(out.Historical))
	rep.SetRows("curated_live", len(out.Live))
	rep.SetRows("curated_final", len(out.Final))
	logger.Info("Curation done", "rows", len(out.Final), "unresolved", len(rep.Unresolved))

	return out
}

func recordResultStats(s historical.Stats, rep *report.Report) {
	if s.UnknownDates > 0 {
		rep.Warnf("results", "unknown_date", s.UnknownDates,
			"%d results with unparseable date kept as unknown_date", s.UnknownDates)
	}
	if s.AmbiguousNeutral > 0 {
		rep.Warnf("results", "ambiguous_neutral", s.AmbiguousNeutral,
			"%d results with ambiguous neutral flag kept as unknown", s.AmbiguousNeutral)
	}
	if s.NullScores > 0 {
		rep.Infof("results", "null_scores", s.NullScores,
			"%d results without a final score", s.NullScores)
	}
}

func aliasUsage(family string, t *alias.Tracker) report.AliasUsage {
	unmapped := t.Unmapped()
	if len(unmapped) > merge.TopUnmatched {
		unmapped = unmapped[:merge.TopUnmatched]
	}
	return report.AliasUsage{Family: family, Lookups: t.Lookups, Mapped: t.Mapped, Unmapped: unmapped}
}
