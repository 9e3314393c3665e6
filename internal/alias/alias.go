// Package alias resolves source-specific team names to canonical names using
// curated many-to-one mapping tables.
//
// Mapping files are CSV with two named columns (source name, canonical name).
// A missing file is a valid "no aliases" state. A file without the required
// columns is a configuration error.
package alias

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/albapepper/scoracle-matches/internal/normalize"
)

// ErrMappingSchema is returned when a mapping file lacks a required column.
var ErrMappingSchema = errors.New("alias mapping schema")

// Schema names a source pair and the columns of its mapping file.
type Schema struct {
	Pair            string
	SourceColumn    string
	CanonicalColumn string
}

var (
	// HistoricalToRanking maps historical export names to ranking names.
	HistoricalToRanking = Schema{Pair: "historical->ranking", SourceColumn: "kaggle_name", CanonicalColumn: "ranking_name"}
	// LiveToHistorical maps live API names to historical export names.
	LiveToHistorical = Schema{Pair: "live->historical", SourceColumn: "api_name", CanonicalColumn: "kaggle_name"}
)

// Resolution is the tagged result of a lookup: Mapped is false when the name
// passed through unchanged.
type Resolution struct {
	Name   string
	Mapped bool
}

// Mapping is a read-only many-to-one table from source name to canonical name.
type Mapping struct {
	Pair      string
	entries   map[string]string
	conflicts int
}

// New builds a mapping from pairs, normalizing keys and values with norm.
// The first value wins when a key repeats with a different value.
func New(pair string, pairs map[string]string, norm normalize.Func) *Mapping {
	m := &Mapping{Pair: pair, entries: make(map[string]string, len(pairs))}
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.add(norm(k), norm(pairs[k]))
	}
	return m
}

// Empty returns a mapping with no aliases.
func Empty(pair string) *Mapping {
	return &Mapping{Pair: pair, entries: map[string]string{}}
}

func (m *Mapping) add(source, canonical string) {
	if source == "" || canonical == "" {
		return
	}
	if existing, ok := m.entries[source]; ok {
		if existing != canonical {
			m.conflicts++
		}
		return
	}
	m.entries[source] = canonical
}

// Len returns the number of rules.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Conflicts returns how many rows repeated a key with a different target.
func (m *Mapping) Conflicts() int {
	if m == nil {
		return 0
	}
	return m.conflicts
}

// Lookup resolves an already normalized name.
func (m *Mapping) Lookup(name string) Resolution {
	if m == nil {
		return Resolution{Name: name}
	}
	if canonical, ok := m.entries[name]; ok {
		return Resolution{Name: canonical, Mapped: true}
	}
	return Resolution{Name: name}
}

// Resolve looks up the whitespace-normalized name and returns its canonical
// name, or name itself when unmapped.
func Resolve(name string, m *Mapping) string {
	if r := m.Lookup(normalize.Name(name)); r.Mapped {
		return r.Name
	}
	return name
}

// --------------------------------------------------------------------------
// Loading
// --------------------------------------------------------------------------

// Load reads a mapping file. A missing file yields an empty mapping.
func Load(path string, schema Schema, norm normalize.Func) (*Mapping, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Empty(schema.Pair), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read mapping %s: %w", path, err)
	}
	m, err := Parse(bytes.NewReader(decodeText(raw)), schema, norm)
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	return m, nil
}

// Parse reads mapping rows from r.
func Parse(r io.Reader, schema Schema, norm normalize.Func) (*Mapping, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file, need columns %q and %q",
			ErrMappingSchema, schema.SourceColumn, schema.CanonicalColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	srcIdx, canIdx := -1, -1
	for i, h := range header {
		switch normalize.Name(strings.TrimPrefix(h, "\ufeff")) {
		case schema.SourceColumn:
			srcIdx = i
		case schema.CanonicalColumn:
			canIdx = i
		}
	}
	if srcIdx < 0 || canIdx < 0 {
		return nil, fmt.Errorf("%w: need columns %q and %q, found %v",
			ErrMappingSchema, schema.SourceColumn, schema.CanonicalColumn, header)
	}

	m := Empty(schema.Pair)
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if srcIdx >= len(rec) || canIdx >= len(rec) {
			continue
		}
		m.add(norm(rec[srcIdx]), norm(rec[canIdx]))
	}
	return m, nil
}

// decodeText returns raw as UTF-8, falling back to Windows-1252 for files
// saved by spreadsheet tools.
func decodeText(raw []byte) []byte {
	if utf8.Valid(raw) {
		return raw
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// --------------------------------------------------------------------------
// Chains and tracking
// --------------------------------------------------------------------------

// Chain applies mappings in order, e.g. live -> historical -> ranking.
type Chain []*Mapping

// Resolve runs name through every mapping. Mapped is true if any step
// matched.
func (c Chain) Resolve(name string) Resolution {
	out := Resolution{Name: name}
	for _, m := range c {
		r := m.Lookup(out.Name)
		out.Name = r.Name
		out.Mapped = out.Mapped || r.Mapped
	}
	return out
}

// Tracker counts lookups and unmapped names so unmatched rates can be
// reported per source pair.
type Tracker struct {
	Lookups  int
	Mapped   int
	unmapped map[string]int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{unmapped: map[string]int{}}
}

// Observe records one resolution.
func (t *Tracker) Observe(r Resolution) {
	t.Lookups++
	if r.Mapped {
		t.Mapped++
		return
	}
	if t.unmapped == nil {
		t.unmapped = map[string]int{}
	}
	t.unmapped[r.Name]++
}

// UnmappedCount returns how often name passed through unmapped.
func (t *Tracker) UnmappedCount(name string) int {
	return t.unmapped[name]
}

// Unmapped returns unmapped names with their counts, most frequent first.
func (t *Tracker) Unmapped() []NameCount {
	out := make([]NameCount, 0, len(t.unmapped))
	for name, n := range t.unmapped {
		out = append(out, NameCount{Name: name, Count: n})
	}
	SortNameCounts(out)
	return out
}

// NameCount pairs a team name with an occurrence count.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SortNameCounts orders by count descending, then name.
func SortNameCounts(s []NameCount) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Count != s[j].Count {
			return s[i].Count > s[j].Count
		}
		return s[i].Name < s[j].Name
	})
}
