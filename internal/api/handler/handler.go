// Package handler provides HTTP handlers for all API endpoints.
// Handlers query Postgres directly through prepared statements, with no
// service layer. Statements return complete JSON; handlers pass raw bytes through.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/scoracle-matches/internal/api/respond"
	"github.com/albapepper/scoracle-matches/internal/cache"
	"github.com/albapepper/scoracle-matches/internal/config"
	"github.com/albapepper/scoracle-matches/internal/db"
)

// Querier is the part of *pgxpool.Pool the handlers use.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	db    Querier
	cache *cache.Cache
	cfg   *config.Config
}

// New creates a Handler with shared dependencies.
func New(q Querier, c *cache.Cache, cfg *config.Config) *Handler {
	return &Handler{db: q, cache: c, cfg: cfg}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status, and the published resources.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Scoracle Matches API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"resources": []string{
			"/api/v1/matches",
			"/api/v1/matches/{matchKey}",
			"/api/v1/rankings",
			"/api/v1/runs/latest",
		},
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	var n int
	err := h.db.QueryRow(r.Context(), db.StmtHealthCheck).Scan(&n)
	if err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics (active keys, expired keys, flushes).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// cachedQuery serves key from the cache or loads it with stmt. A NULL result
// is reported as 404 with notFound as the message.
func (h *Handler) cachedQuery(w http.ResponseWriter, r *http.Request, key string, ttl time.Duration, notFound, stmt string, args ...any) {
	if data, etag, ok := h.cache.Get(key); ok {
		respond.WriteCached(w, r, data, etag, ttl, true)
		return
	}

	var raw []byte
	err := h.db.QueryRow(r.Context(), stmt, args...).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && raw == nil) {
		respond.WriteError(w, http.StatusNotFound, respond.CodeNotFound, notFound)
		return
	}
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, respond.CodeDBError, "Query failed", err.Error())
		return
	}

	etag := h.cache.Set(key, raw, ttl)
	respond.WriteCached(w, r, raw, etag, ttl, false)
}
