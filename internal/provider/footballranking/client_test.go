package footballranking

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-matches/internal/ranking"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestFetchPage_SendsPageAndUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fifa-rankings", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, "<html>page three</html>")
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/fifa-rankings", "test-agent", 6000, quiet)
	body, err := c.FetchPage(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "<html>page three</html>", body)
}

func TestFetchPage_NonOKIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, strings.Repeat("x", 500))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 6000, quiet)
	_, err := c.FetchPage(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 503")
	assert.Less(t, len(err.Error()), 300)
}

func TestClient_DrivesScraper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			_, _ = io.WriteString(w, "<html><body>end</body></html>")
			return
		}
		_, _ = io.WriteString(w, `<html><body><table>
<tr><th>Rank</th><th>Team</th><th>Points</th></tr>
<tr><td>1</td><td>Argentina (ARG)</td><td>1,877.18</td></tr>
<tr><td>2</td><td>Spain (ESP)</td><td>1,873.33</td></tr>
</table></body></html>`)
	}))
	defer srv.Close()

	var _ ranking.Fetcher = (*Client)(nil)

	s := ranking.NewScraper(NewClient(srv.URL, "", 6000, quiet), ranking.Options{}, quiet)
	res, err := s.Scrape(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ranking.StopShortPage, res.Stop)
	assert.Len(t, res.Snapshot().Entries, 2)
}
