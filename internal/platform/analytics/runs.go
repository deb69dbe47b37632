// Package analytics keeps in-process counters for dashboard traffic and for
// completed extraction runs. Nothing is persisted; counters reset with the
// process.
package analytics

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/clinicaldash/pkg/pagination"
)

// RunMetric describes one completed extraction run.
type RunMetric struct {
	Timestamp time.Time     `json:"timestamp"`
	SessionID string        `json:"session_id"`
	QueryType string        `json:"query_type"`
	Steps     int           `json:"steps"`
	Duration  time.Duration `json:"duration"`
}

// RunSummary aggregates runs of one query type.
type RunSummary struct {
	QueryType     string        `json:"query_type"`
	TotalRuns     int64         `json:"total_runs"`
	TotalSteps    int64         `json:"total_steps"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
	LastRunAt     time.Time     `json:"last_run_at"`
}

// RunOverview is returned by the runs endpoint.
type RunOverview struct {
	TotalRuns int64         `json:"total_runs"`
	ByType    []*RunSummary `json:"by_type"`
	Recent    []*RunMetric  `json:"recent"`
}

// RunTracker keeps per-type run counters and a ring buffer of recent runs.
type RunTracker struct {
	mu       sync.RWMutex
	recent   []*RunMetric
	max      int
	writePos int
	full     bool
	byType   map[string]*RunSummary
	total    int64
}

// NewRunTracker creates a tracker that remembers the last maxRecent runs.
func NewRunTracker(maxRecent int) *RunTracker {
	if maxRecent <= 0 {
		maxRecent = 100
	}
	return &RunTracker{
		recent: make([]*RunMetric, 0, maxRecent),
		max:    maxRecent,
		byType: make(map[string]*RunSummary),
	}
}

// RecordRun adds a completed run.
func (rt *RunTracker) RecordRun(m RunMetric) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	metric := m
	if rt.full {
		rt.recent[rt.writePos] = &metric
	} else {
		rt.recent = append(rt.recent, &metric)
	}
	rt.writePos++
	if rt.writePos >= rt.max {
		rt.writePos = 0
		rt.full = true
	}

	s, ok := rt.byType[m.QueryType]
	if !ok {
		s = &RunSummary{QueryType: m.QueryType}
		rt.byType[m.QueryType] = s
	}
	s.TotalRuns++
	s.TotalSteps += int64(m.Steps)
	s.TotalDuration += m.Duration
	s.AvgDuration = time.Duration(int64(s.TotalDuration) / s.TotalRuns)
	if m.Timestamp.After(s.LastRunAt) {
		s.LastRunAt = m.Timestamp
	}
	rt.total++
}

// Summary returns counters for one query type, or nil when none ran.
func (rt *RunTracker) Summary(queryType string) *RunSummary {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	s, ok := rt.byType[queryType]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

// Recent returns up to limit runs, newest first.
func (rt *RunTracker) Recent(limit int) []*RunMetric {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	n := len(rt.recent)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*RunMetric, 0, limit)
	// writePos points one past the newest entry.
	for i := 0; i < limit; i++ {
		idx := (rt.writePos - 1 - i + n) % n
		cp := *rt.recent[idx]
		out = append(out, &cp)
	}
	return out
}

// Overview returns totals, per-type summaries sorted by type and the ten most
// recent runs.
func (rt *RunTracker) Overview() *RunOverview {
	rt.mu.RLock()
	byType := make([]*RunSummary, 0, len(rt.byType))
	for _, s := range rt.byType {
		cp := *s
		byType = append(byType, &cp)
	}
	total := rt.total
	rt.mu.RUnlock()

	sort.Slice(byType, func(i, j int) bool { return byType[i].QueryType < byType[j].QueryType })

	return &RunOverview{
		TotalRuns: total,
		ByType:    byType,
		Recent:    rt.Recent(10),
	}
}

// ---------------------------------------------------------------------------
// Echo HTTP handler
// ---------------------------------------------------------------------------

// Handler exposes run and usage counters as JSON.
type Handler struct {
	runs  *RunTracker
	usage *UsageTracker
}

func NewHandler(runs *RunTracker, usage *UsageTracker) *Handler {
	return &Handler{runs: runs, usage: usage}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/analytics/runs", h.HandleRuns)
	g.GET("/analytics/history", h.HandleHistory)
	g.GET("/analytics/runs/:type", h.HandleRunsByType)
	g.GET("/analytics/usage", h.HandleUsage)
}

// HandleRuns returns the run overview. ?limit= widens the recent list.
func (h *Handler) HandleRuns(c echo.Context) error {
	overview := h.runs.Overview()
	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			overview.Recent = h.runs.Recent(parsed)
		}
	}
	return c.JSON(http.StatusOK, overview)
}

// HandleHistory pages through the remembered runs, newest first.
func (h *Handler) HandleHistory(c echo.Context) error {
	p := pagination.FromContext(c)
	all := h.runs.Recent(0)
	start, end := p.Bounds(len(all))
	return c.JSON(http.StatusOK, pagination.NewResponse(all[start:end], len(all), p))
}

func (h *Handler) HandleRunsByType(c echo.Context) error {
	s := h.runs.Summary(c.Param("type"))
	if s == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no runs for query type")
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) HandleUsage(c echo.Context) error {
	if h.usage == nil {
		return echo.NewHTTPError(http.StatusNotFound, "usage tracking disabled")
	}
	return c.JSON(http.StatusOK, h.usage.GetOverview())
}
