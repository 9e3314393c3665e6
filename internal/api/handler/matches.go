package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/scoracle-matches/internal/api/respond"
	"github.com/albapepper/scoracle-matches/internal/cache"
	"github.com/albapepper/scoracle-matches/internal/db"
	"github.com/albapepper/scoracle-matches/internal/provider"
)

// Limits for /matches.
const (
	DefaultMatchLimit = 100
	MaxMatchLimit     = 1000
)

// MatchFilter is the parsed query of /matches.
type MatchFilter struct {
	Source string
	Team   string
	From   provider.Date
	To     provider.Date
	Limit  int
}

// CacheKey identifies the filter in the response cache.
func (f MatchFilter) CacheKey() string {
	return fmt.Sprintf("matches:%s|%s|%s|%s|%d", f.Source, f.Team, f.From, f.To, f.Limit)
}

func (f MatchFilter) args() []any {
	return []any{nilEmpty(f.Source), nilEmpty(f.Team), dateArg(f.From), dateArg(f.To), f.Limit}
}

// ParseMatchFilter validates the /matches query parameters.
func ParseMatchFilter(q url.Values) (MatchFilter, error) {
	f := MatchFilter{
		Source: strings.TrimSpace(q.Get("source")),
		Team:   strings.Join(strings.Fields(q.Get("team")), " "),
		Limit:  DefaultMatchLimit,
	}
	switch provider.Source(f.Source) {
	case "", provider.SourceHistorical, provider.SourceLive:
	default:
		return f, fmt.Errorf("source must be %s or %s", provider.SourceHistorical, provider.SourceLive)
	}

	for _, p := range []struct {
		name string
		dst  *provider.Date
	}{{"from", &f.From}, {"to", &f.To}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		d := provider.ParseDate(v)
		if !d.Known() {
			return f, fmt.Errorf("%s must be a YYYY-MM-DD date", p.name)
		}
		*p.dst = d
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxMatchLimit {
			return f, fmt.Errorf("limit must be between 1 and %d", MaxMatchLimit)
		}
		f.Limit = n
	}
	return f, nil
}

// ListMatches returns curated matches.
// @Summary List curated matches
// @Description Returns curated matches of the last published run, ordered by date, source and row index.
// @Tags matches
// @Produce json
// @Param source query string false "Source family" Enums(historical_export, live_api)
// @Param team query string false "Canonical team name, home or away"
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Param limit query int false "Maximum rows (1-1000, default 100)"
// @Success 200 {array} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /matches [get]
func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	f, err := ParseMatchFilter(r.URL.Query())
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeBadRequest, err.Error())
		return
	}
	h.cachedQuery(w, r, f.CacheKey(), cache.TTLMatches, "No matches", db.StmtMatches, f.args()...)
}

// GetMatch returns every row published under a match key.
// @Summary Get matches by key
// @Description Returns the rows sharing a match_key. Keys published under the bare triple policy can be shared by several rows.
// @Tags matches
// @Produce json
// @Param matchKey path string true "URL-encoded match key"
// @Success 200 {array} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Router /matches/{matchKey} [get]
func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "matchKey"))
	if err != nil || key == "" {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid match key")
		return
	}
	h.cachedQuery(w, r, "match:"+key, cache.TTLMatches, "No match with key "+key, db.StmtMatchByKey, key)
}

// GetRankings returns the published ranking snapshot.
// @Summary Get the ranking snapshot
// @Description Returns the processed ranking used by the last published run.
// @Tags rankings
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /rankings [get]
func (h *Handler) GetRankings(w http.ResponseWriter, r *http.Request) {
	h.cachedQuery(w, r, "rankings", cache.TTLRankings, "No ranking published", db.StmtRankings)
}

// GetLatestRun returns the report of the most recent published run.
// @Summary Get the latest run report
// @Description Returns the diagnostics report of the most recent publication.
// @Tags runs
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} respond.ErrorResponse
// @Router /runs/latest [get]
func (h *Handler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	h.cachedQuery(w, r, "runs:latest", cache.TTLRun, "No run published", db.StmtLatestRun)
}

func nilEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func dateArg(d provider.Date) any {
	if t, ok := d.Time(); ok {
		return t
	}
	return nil
}
