// Package listener provides a Postgres LISTEN/NOTIFY consumer that keeps the
// API response cache in step with publications. It holds a dedicated pgx
// connection (not from the pool) listening on the channel the publisher
// notifies after every committed run.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/scoracle-matches/internal/db"
)

const (
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Flusher drops cached responses. *cache.Cache implements it.
type Flusher interface {
	Flush() int
}

// Start opens a dedicated connection and listens on db.PublishedChannel. It
// reconnects automatically on connection loss. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, c Flusher, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, c, logger)
		if ctx.Err() != nil {
			logger.Info("Publication listener stopped (context cancelled)")
			return
		}

		logger.Error("Publication listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, c Flusher, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{db.PublishedChannel}.Sanitize())
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", db.PublishedChannel, err)
	}
	logger.Info("Publication listener connected", "channel", db.PublishedChannel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		HandlePublished(notification.Payload, c, logger)
	}
}

// HandlePublished flushes the cache for a newly published run.
func HandlePublished(runID string, c Flusher, logger *slog.Logger) int {
	n := c.Flush()
	logger.Info("Run published, cache flushed", "run_id", runID, "entries", n)
	return n
}
