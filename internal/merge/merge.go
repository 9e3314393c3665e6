// Package merge is the cross-source merge engine. It builds the base match
// rows of each family, left-joins the enrichment sources onto them in a fixed
// order and concatenates the families into one table.
//
// Every join is a left outer join: the output of each step has exactly the
// rows of its input, in the same order. Enrichment sources are deduplicated
// on the match key before they are joined, so a join never multiplies rows.
package merge

import (
	"github.com/albapepper/scoracle-matches/internal/alias"
	"github.com/albapepper/scoracle-matches/internal/matchkey"
	"github.com/albapepper/scoracle-matches/internal/normalize"
	"github.com/albapepper/scoracle-matches/internal/provider"
	"github.com/albapepper/scoracle-matches/internal/provider/apifootball"
	"github.com/albapepper/scoracle-matches/internal/provider/historical"
	"github.com/albapepper/scoracle-matches/internal/report"
)

// Family names used in diagnostics.
const (
	FamilyHistorical = "historical"
	FamilyLive       = "live"
)

// TopUnmatched is how many unmatched team names a match rate keeps per side.
const TopUnmatched = 30

// LowMatchRate is the both-sides match rate below which a ranking join is
// flagged.
const LowMatchRate = 0.5

// KeyOf returns the join key of a record from its current canonical names.
func KeyOf(m provider.MatchRecord) matchkey.Key {
	return matchkey.Build(m.Date, m.HomeTeamCanonical, m.AwayTeamCanonical)
}

// --------------------------------------------------------------------------
// Base rows
// --------------------------------------------------------------------------

// BaseRecords converts historical results to match records. Canonical names
// start as the normalized source names; ResolveTeams maps them later.
func BaseRecords(results []historical.Result, norm normalize.Func) []provider.MatchRecord {
	out := make([]provider.MatchRecord, len(results))
	for i, r := range results {
		out[i] = provider.MatchRecord{
			RowIndex:          i,
			Source:            provider.SourceHistorical,
			Date:              r.Date,
			HomeTeamRaw:       r.HomeTeam,
			AwayTeamRaw:       r.AwayTeam,
			HomeTeamCanonical: norm(r.HomeTeam),
			AwayTeamCanonical: norm(r.AwayTeam),
			HomeScore:         r.HomeScore,
			AwayScore:         r.AwayScore,
			Tournament:        r.Tournament,
			VenueCity:         r.City,
			VenueCountry:      r.Country,
			NeutralSite:       r.Neutral,
			OutcomeCode:       r.OutcomeCode,
		}
	}
	return out
}

// ReshapeFixtures converts live fixtures to match records. The live source
// has no venue, neutrality, shootout or goal-event data; fixture id, league
// id and season are kept as provenance.
func ReshapeFixtures(fixtures []apifootball.Fixture, norm normalize.Func) []provider.MatchRecord {
	out := make([]provider.MatchRecord, len(fixtures))
	for i, f := range fixtures {
		out[i] = provider.MatchRecord{
			RowIndex:          i,
			Source:            provider.SourceLive,
			Date:              f.Date,
			HomeTeamRaw:       f.HomeTeam,
			AwayTeamRaw:       f.AwayTeam,
			HomeTeamCanonical: norm(f.HomeTeam),
			AwayTeamCanonical: norm(f.AwayTeam),
			HomeScore:         f.HomeGoals,
			AwayScore:         f.AwayGoals,
			Tournament:        f.League,
			NeutralSite:       provider.Unknown,
			FixtureID:         provider.IntPtr(f.FixtureID),
			LeagueID:          f.LeagueID,
			Season:            f.Season,
		}
	}
	return out
}

// --------------------------------------------------------------------------
// Event-level enrichment
// --------------------------------------------------------------------------

// JoinShootouts left-joins the shootouts table onto base. Shootouts are
// deduplicated first-seen on the match key; shootouts that match no base row
// are reported as orphans.
func JoinShootouts(base []provider.MatchRecord, shootouts []historical.Shootout, norm normalize.Func, rep *report.Report) []provider.MatchRecord {
	index, dedup := matchkey.Dedup("shootouts", shootouts, func(s historical.Shootout) matchkey.Key {
		return matchkey.Build(s.Date, norm(s.HomeTeam), norm(s.AwayTeam))
	})
	rep.AddDedup(dedup)

	out := make([]provider.MatchRecord, len(base))
	matched := map[matchkey.Key]bool{}
	withShootout := 0
	for i, m := range base {
		k := KeyOf(m)
		if s, ok := index[k]; ok && k.Joinable() {
			matched[k] = true
			m.ShootoutWinner = s.Winner
			m.HasShootout = s.Winner != ""
			if m.HasShootout {
				withShootout++
			}
		}
		out[i] = m
	}

	rep.Infof("shootouts", "matches_with_shootout", withShootout,
		"%d matches carry a shootout winner", withShootout)
	if orphans := len(index) - len(matched); orphans > 0 {
		rep.Warnf("shootouts", "orphan_shootouts", orphans,
			"%d shootouts have no matching result row", orphans)
	}
	return out
}

// AggregateGoals groups goal events by match key, counting scorer rows,
// penalties and own goals. Events with an unknown date are skipped and
// counted.
func AggregateGoals(goals []historical.Goal, norm normalize.Func) (map[matchkey.Key]provider.GoalAggregate, int) {
	aggs := map[matchkey.Key]provider.GoalAggregate{}
	unjoinable := 0
	for _, g := range goals {
		k := matchkey.Build(g.Date, norm(g.HomeTeam), norm(g.AwayTeam))
		if !k.Joinable() {
			unjoinable++
			continue
		}
		a := aggs[k]
		a.Present = true
		if g.Scorer != "" {
			a.Events++
		}
		if g.Penalty {
			a.Penalties++
		}
		if g.OwnGoal {
			a.OwnGoals++
		}
		aggs[k] = a
	}
	return aggs, unjoinable
}

// JoinGoals left-joins goal aggregates onto base. Rows without an aggregate
// keep GoalAggregate{Present: false}; their count is recorded in the report.
func JoinGoals(base []provider.MatchRecord, aggs map[matchkey.Key]provider.GoalAggregate, rep *report.Report) []provider.MatchRecord {
	out := make([]provider.MatchRecord, len(base))
	absent, withEvents := 0, 0
	for i, m := range base {
		k := KeyOf(m)
		if a, ok := aggs[k]; ok && k.Joinable() {
			m.Goals = a
			if a.Events > 0 {
				withEvents++
			}
		} else {
			m.Goals = provider.GoalAggregate{}
			absent++
		}
		out[i] = m
	}
	rep.AbsentGoals += absent
	rep.Infof("goalscorers", "matches_with_goal_events", withEvents,
		"%d matches have at least one goal event; %d have no goal-event rows", withEvents, absent)
	return out
}

// --------------------------------------------------------------------------
// Names and rankings
// --------------------------------------------------------------------------

// ResolveTeams maps both canonical names of every row through chain and
// records each lookup in tracker.
func ResolveTeams(rows []provider.MatchRecord, chain alias.Chain, tracker *alias.Tracker) []provider.MatchRecord {
	out := make([]provider.MatchRecord, len(rows))
	for i, m := range rows {
		home := chain.Resolve(m.HomeTeamCanonical)
		away := chain.Resolve(m.AwayTeamCanonical)
		if tracker != nil {
			tracker.Observe(home)
			tracker.Observe(away)
		}
		m.HomeTeamCanonical = home.Name
		m.AwayTeamCanonical = away.Name
		out[i] = m
	}
	return out
}

// RankingIndex maps normalized ranking team names to their rank. The first
// entry wins when a team repeats.
type RankingIndex struct {
	Period     string
	entries    map[string]provider.RankSide
	Duplicates int
}

// NewRankingIndex indexes a snapshot by norm(team).
func NewRankingIndex(snap provider.RankingSnapshot, norm normalize.Func) *RankingIndex {
	idx := &RankingIndex{Period: snap.PeriodLabel, entries: make(map[string]provider.RankSide, len(snap.Entries))}
	for _, e := range snap.Entries {
		team := norm(e.Team)
		if _, ok := idx.entries[team]; ok {
			idx.Duplicates++
			continue
		}
		idx.entries[team] = provider.RankSide{Position: e.Position, Points: e.Points}
	}
	return idx
}

// Len returns the number of indexed teams.
func (x *RankingIndex) Len() int { return len(x.entries) }

// Lookup returns the rank of a team.
func (x *RankingIndex) Lookup(team string) (provider.RankSide, bool) {
	r, ok := x.entries[team]
	return r, ok
}

// JoinRankings left-joins the ranking onto rows twice, by home and by away
// team, and computes rank_points_diff when both sides matched. The match
// rate of the join is recorded in the report under family.
func JoinRankings(rows []provider.MatchRecord, idx *RankingIndex, family string, rep *report.Report) []provider.MatchRecord {
	out := make([]provider.MatchRecord, len(rows))
	rate := report.MatchRate{Family: family, Rows: len(rows)}
	missHome, missAway := alias.NewTracker(), alias.NewTracker()

	for i, m := range rows {
		m.HomeRank, m.AwayRank, m.RankPointsDiff = nil, nil, nil

		if r, ok := idx.Lookup(m.HomeTeamCanonical); ok {
			m.HomeRank = &r
			rate.Home++
		} else {
			missHome.Observe(alias.Resolution{Name: m.HomeTeamCanonical})
		}
		if r, ok := idx.Lookup(m.AwayTeamCanonical); ok {
			m.AwayRank = &r
			rate.Away++
		} else {
			missAway.Observe(alias.Resolution{Name: m.AwayTeamCanonical})
		}
		if m.HomeRank != nil && m.AwayRank != nil {
			rate.Both++
			m.RankPointsDiff = provider.FloatPtr(m.HomeRank.Points - m.AwayRank.Points)
		}
		out[i] = m
	}

	rate.TopUnmatchedHome = top(missHome.Unmapped(), TopUnmatched)
	rate.TopUnmatchedAway = top(missAway.Unmapped(), TopUnmatched)
	rep.AddMatchRate(rate)
	if rate.Rows > 0 && rate.BothRate() < LowMatchRate {
		rep.Warnf(family, "low_match_rate", rate.Rows-rate.Both,
			"only %.1f%% of rows matched a ranking on both sides", 100*rate.BothRate())
	}
	return out
}

func top(s []alias.NameCount, n int) []alias.NameCount {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// --------------------------------------------------------------------------
// Publication
// --------------------------------------------------------------------------

// AssignKeys sets the published match_key of every row under policy.
func AssignKeys(rows []provider.MatchRecord, policy matchkey.Policy) []provider.MatchRecord {
	out := make([]provider.MatchRecord, len(rows))
	for i, m := range rows {
		m.MatchKey = matchkey.Publish(KeyOf(m), policy, m.Source, m.RowIndex, m.Tournament)
		out[i] = m
	}
	return out
}

// Concat appends the families in order. Residual match_key collisions are
// reported as unresolved duplicates; rows are never collapsed.
func Concat(rep *report.Report, families ...[]provider.MatchRecord) []provider.MatchRecord {
	n := 0
	for _, f := range families {
		n += len(f)
	}
	out := make([]provider.MatchRecord, 0, n)
	for _, f := range families {
		out = append(out, f...)
	}

	keys := make([]string, len(out))
	for i, m := range out {
		keys[i] = m.MatchKey
	}
	rep.AddUnresolved(matchkey.FindCollisions(keys))
	return out
}
