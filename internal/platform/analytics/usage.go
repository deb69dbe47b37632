package analytics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// ---------------------------------------------------------------------------
// Request metrics
// ---------------------------------------------------------------------------

// RequestMetric captures a single dashboard request.
type RequestMetric struct {
	Timestamp  time.Time     `json:"timestamp"`
	Method     string        `json:"method"`
	Route      string        `json:"route"`
	StatusCode int           `json:"status_code"`
	Duration   time.Duration `json:"duration"`
	SessionID  string        `json:"session_id"`
}

type routeStats struct {
	Route         string
	TotalRequests int64
	TotalErrors   int64
	TotalDuration int64 // nanoseconds
	StatusCounts  map[int]int64
	mu            sync.Mutex
}

// RouteSummary provides aggregated statistics for a single route.
type RouteSummary struct {
	Route           string        `json:"route"`
	TotalRequests   int64         `json:"total_requests"`
	ErrorRate       float64       `json:"error_rate"`
	AvgLatency      time.Duration `json:"avg_latency"`
	StatusBreakdown map[int]int64 `json:"status_breakdown"`
}

// UsageOverview is a high-level summary of dashboard traffic.
type UsageOverview struct {
	TotalRequests  int64           `json:"total_requests"`
	TotalErrors    int64           `json:"total_errors"`
	ErrorRate      float64         `json:"error_rate"`
	AvgLatency     time.Duration   `json:"avg_latency"`
	UniqueSessions int             `json:"unique_sessions"`
	TopRoutes      []*RouteSummary `json:"top_routes"`
}

// UsageTracker counts requests per route and per session. It keeps counters
// only; individual requests are not retained.
type UsageTracker struct {
	routes        map[string]*routeStats
	sessions      map[string]time.Time
	mu            sync.RWMutex
	totalRequests int64
	totalErrors   int64
	totalDuration int64 // nanoseconds
}

func NewUsageTracker() *UsageTracker {
	return &UsageTracker{
		routes:   make(map[string]*routeStats),
		sessions: make(map[string]time.Time),
	}
}

// Record updates the counters for one request.
func (ut *UsageTracker) Record(metric *RequestMetric) {
	isError := metric.StatusCode >= 400

	atomic.AddInt64(&ut.totalRequests, 1)
	if isError {
		atomic.AddInt64(&ut.totalErrors, 1)
	}
	atomic.AddInt64(&ut.totalDuration, int64(metric.Duration))

	ut.mu.Lock()
	rs, ok := ut.routes[metric.Route]
	if !ok {
		rs = &routeStats{Route: metric.Route, StatusCounts: make(map[int]int64)}
		ut.routes[metric.Route] = rs
	}
	if metric.SessionID != "" {
		ut.sessions[metric.SessionID] = metric.Timestamp
	}
	ut.mu.Unlock()

	rs.mu.Lock()
	rs.TotalRequests++
	if isError {
		rs.TotalErrors++
	}
	rs.TotalDuration += int64(metric.Duration)
	rs.StatusCounts[metric.StatusCode]++
	rs.mu.Unlock()
}

// GetRouteStats returns stats for a route pattern, or nil if it was never hit.
func (ut *UsageTracker) GetRouteStats(route string) *RouteSummary {
	ut.mu.RLock()
	rs, ok := ut.routes[route]
	ut.mu.RUnlock()
	if !ok {
		return nil
	}
	return rs.summary()
}

// GetTopRoutes returns the busiest routes, most requests first.
func (ut *UsageTracker) GetTopRoutes(limit int) []*RouteSummary {
	ut.mu.RLock()
	summaries := make([]*RouteSummary, 0, len(ut.routes))
	for _, rs := range ut.routes {
		summaries = append(summaries, rs.summary())
	}
	ut.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].TotalRequests == summaries[j].TotalRequests {
			return summaries[i].Route < summaries[j].Route
		}
		return summaries[i].TotalRequests > summaries[j].TotalRequests
	})

	if limit > len(summaries) {
		limit = len(summaries)
	}
	return summaries[:limit]
}

// GetOverview returns totals across all routes.
func (ut *UsageTracker) GetOverview() *UsageOverview {
	total := atomic.LoadInt64(&ut.totalRequests)
	errs := atomic.LoadInt64(&ut.totalErrors)
	dur := atomic.LoadInt64(&ut.totalDuration)

	overview := &UsageOverview{
		TotalRequests: total,
		TotalErrors:   errs,
		TopRoutes:     ut.GetTopRoutes(5),
	}
	if total > 0 {
		overview.ErrorRate = float64(errs) / float64(total)
		overview.AvgLatency = time.Duration(dur / total)
	}

	ut.mu.RLock()
	overview.UniqueSessions = len(ut.sessions)
	ut.mu.RUnlock()
	return overview
}

// GetAverageLatency returns the mean request duration.
func (ut *UsageTracker) GetAverageLatency() time.Duration {
	total := atomic.LoadInt64(&ut.totalRequests)
	if total == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&ut.totalDuration) / total)
}

func (rs *routeStats) summary() *RouteSummary {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	s := &RouteSummary{
		Route:           rs.Route,
		TotalRequests:   rs.TotalRequests,
		StatusBreakdown: make(map[int]int64, len(rs.StatusCounts)),
	}
	if rs.TotalRequests > 0 {
		s.ErrorRate = float64(rs.TotalErrors) / float64(rs.TotalRequests)
		s.AvgLatency = time.Duration(rs.TotalDuration / rs.TotalRequests)
	}
	for code, n := range rs.StatusCounts {
		s.StatusBreakdown[code] = n
	}
	return s
}

// ---------------------------------------------------------------------------
// Echo middleware
// ---------------------------------------------------------------------------

// UsageMiddleware records every request into tracker. Requests are grouped
// by the matched route pattern so path parameters do not explode the table.
func UsageMiddleware(tracker *UsageTracker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}

			sessionID, _ := c.Get("session_id").(string)

			tracker.Record(&RequestMetric{
				Timestamp:  start,
				Method:     c.Request().Method,
				Route:      route,
				StatusCode: status,
				Duration:   time.Since(start),
				SessionID:  sessionID,
			})

			return err
		}
	}
}
