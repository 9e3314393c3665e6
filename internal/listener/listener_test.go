package listener

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-matches/internal/cache"
)

func TestHandlePublished_FlushesCache(t *testing.T) {
	c := cache.New(true)
	c.Set("rankings", []byte(`{}`), time.Hour)
	c.Set("runs:latest", []byte(`{}`), time.Hour)

	n := HandlePublished("20260119T103000Z", c, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, 2, n)
	_, _, ok := c.Get("rankings")
	require.False(t, ok)
}
