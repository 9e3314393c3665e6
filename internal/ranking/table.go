// Package ranking extracts team ranking tables from paginated HTML pages.
//
// The source has no stable schema, so nothing here relies on column indexes:
// the table is chosen by scoring its header cells against a keyword set, and
// each row is read by pattern (leading rank, "(XXX)" team code, first decimal
// number). Discovery and parsing are pure functions over a goquery document;
// fetching lives behind the Fetcher interface.
package ranking

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/albapepper/scoracle-matches/internal/provider"
)

var (
	rankPattern     = regexp.MustCompile(`^\s*(\d+)\b`)
	teamCodePattern = regexp.MustCompile(`\(([A-Z]{3})\)`)
	pointsPattern   = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})*\.\d+\b`)
	periodPattern   = regexp.MustCompile(`Period\s*\n\s*([0-9]{1,2}\s+[A-Za-z]+\s+[0-9]{4})`)
	teamCodeSuffix  = regexp.MustCompile(`\s*\(.*\)`)
)

// HeaderKeywords are matched case-insensitively as substrings of header cells.
var HeaderKeywords = []string{"rank", "team", "current", "point", "prev"}

// MinHeaderHits is the score a table needs to win over the first-table fallback.
const MinHeaderHits = 2

// Row rejection reasons.
const (
	RejectNoPosition    = "no_position"
	RejectPositionRange = "position_out_of_range"
	RejectNoTeamCode    = "no_team_code"
	RejectNoPoints      = "no_points"
)

// ScoreHeaders counts the header cells of table that contain any keyword.
func ScoreHeaders(table *goquery.Selection) int {
	hits := 0
	table.Find("th").Each(func(_ int, th *goquery.Selection) {
		h := strings.ToLower(textOf(th, " "))
		for _, k := range HeaderKeywords {
			if strings.Contains(h, k) {
				hits++
				return
			}
		}
	})
	return hits
}

// FindTable returns the table with the highest header score, the first table
// when no table scores at least MinHeaderHits, and nil when the document has
// no tables at all.
func FindTable(doc *goquery.Document) *goquery.Selection {
	tables := doc.Find("table")
	if tables.Length() == 0 {
		return nil
	}

	best, bestScore := -1, 0
	tables.Each(func(i int, t *goquery.Selection) {
		if score := ScoreHeaders(t); score >= MinHeaderHits && score > bestScore {
			best, bestScore = i, score
		}
	})
	if best < 0 {
		return tables.First()
	}
	return tables.Eq(best)
}

// PeriodLabel returns the visible ranking period (e.g. "19 January 2026"),
// or provider.UnknownPeriod.
func PeriodLabel(doc *goquery.Document) string {
	m := periodPattern.FindStringSubmatch(textOf(doc.Selection, "\n"))
	if m == nil {
		return provider.UnknownPeriod
	}
	return m[1]
}

// ParseRow reads one table row. When the row cannot be used, ok is false and
// reason names the first missing field.
func ParseRow(row *goquery.Selection, maxPosition int) (entry provider.RankingEntry, reason string, ok bool) {
	rowText := textOf(row, " ")

	m := rankPattern.FindStringSubmatch(rowText)
	if m == nil {
		return entry, RejectNoPosition, false
	}
	pos, err := strconv.Atoi(m[1])
	if err != nil {
		return entry, RejectNoPosition, false
	}
	if pos < 1 || pos > maxPosition {
		return entry, RejectPositionRange, false
	}

	var team, code string
	row.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
		cell := textOf(td, " ")
		if cm := teamCodePattern.FindStringSubmatch(cell); cm != nil {
			team, code = cell, cm[1]
			return false
		}
		return true
	})
	if team == "" {
		return entry, RejectNoTeamCode, false
	}

	raw := pointsPattern.FindString(rowText)
	if raw == "" {
		return entry, RejectNoPoints, false
	}
	points, err := ParsePoints(raw)
	if err != nil {
		return entry, RejectNoPoints, false
	}

	return provider.RankingEntry{Position: pos, Team: team, Code: code, Points: points}, "", true
}

// TablePage is the parsed content of one ranking table.
type TablePage struct {
	Entries  []provider.RankingEntry
	Rejected map[string]int
}

// RejectedCount returns the number of data rows that were dropped.
func (p TablePage) RejectedCount() int {
	n := 0
	for _, c := range p.Rejected {
		n += c
	}
	return n
}

// ExtractTable parses every data row of table. Rows without td cells
// (headers) are skipped; malformed rows are dropped and counted by reason.
func ExtractTable(table *goquery.Selection, maxPosition int) TablePage {
	page := TablePage{Rejected: map[string]int{}}
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if row.Find("td").Length() == 0 {
			return
		}
		entry, reason, ok := ParseRow(row, maxPosition)
		if !ok {
			page.Rejected[reason]++
			return
		}
		page.Entries = append(page.Entries, entry)
	})
	return page
}

// ParsePoints parses a decimal with optional thousands separators.
func ParsePoints(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
}

// StripTeamCode removes the "(XXX)" suffix from a ranking team cell.
func StripTeamCode(team string) string {
	return strings.TrimSpace(teamCodeSuffix.ReplaceAllString(team, ""))
}

// textOf joins the trimmed, non-empty text nodes under sel with sep.
func textOf(sel *goquery.Selection, sep string) string {
	var parts []string
	var walk func(s *goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "#text":
				if t := strings.TrimSpace(c.Text()); t != "" {
					parts = append(parts, t)
				}
			case "script", "style", "#comment":
			default:
				walk(c)
			}
		})
	}
	walk(sel)
	return strings.Join(parts, sep)
}
