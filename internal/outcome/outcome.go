// Package outcome derives the result label and the numeric goal features of
// a match.
package outcome

import "github.com/albapepper/scoracle-matches/internal/provider"

// Outcome codes as they appear in source data.
const (
	CodeHomeWin = 1
	CodeDraw    = 0
	CodeAwayWin = -1
)

// Derive returns the outcome of a match. A recognized explicit code wins over
// the scores; otherwise the scores are compared; if either score is missing
// the outcome is undetermined.
func Derive(code, home, away *int) provider.Outcome {
	if code != nil {
		switch *code {
		case CodeHomeWin:
			return provider.OutcomeHomeWin
		case CodeDraw:
			return provider.OutcomeDraw
		case CodeAwayWin:
			return provider.OutcomeAwayWin
		}
	}
	if home == nil || away == nil {
		return provider.OutcomeUndetermined
	}
	switch {
	case *home > *away:
		return provider.OutcomeHomeWin
	case *home < *away:
		return provider.OutcomeAwayWin
	default:
		return provider.OutcomeDraw
	}
}

// Code returns the numeric code of an outcome, nil when undetermined.
func Code(o provider.Outcome) *int {
	switch o {
	case provider.OutcomeHomeWin:
		return provider.IntPtr(CodeHomeWin)
	case provider.OutcomeDraw:
		return provider.IntPtr(CodeDraw)
	case provider.OutcomeAwayWin:
		return provider.IntPtr(CodeAwayWin)
	default:
		return nil
	}
}

// Features returns total goals and the home goal difference. Both are nil
// when either score is missing.
func Features(home, away *int) (total, diffHome *int) {
	if home == nil || away == nil {
		return nil, nil
	}
	return provider.IntPtr(*home + *away), provider.IntPtr(*home - *away)
}

// Apply sets outcome, outcome code and goal features on every row. The
// explicit code a row arrived with is replaced by the code of the derived
// outcome.
func Apply(rows []provider.MatchRecord) []provider.MatchRecord {
	out := make([]provider.MatchRecord, len(rows))
	for i, m := range rows {
		m.Outcome = Derive(m.OutcomeCode, m.HomeScore, m.AwayScore)
		m.OutcomeCode = Code(m.Outcome)
		m.TotalGoals, m.GoalDiffHome = Features(m.HomeScore, m.AwayScore)
		out[i] = m
	}
	return out
}

// Counts tallies rows per outcome.
func Counts(rows []provider.MatchRecord) map[provider.Outcome]int {
	out := map[provider.Outcome]int{}
	for _, m := range rows {
		out[m.Outcome]++
	}
	return out
}
