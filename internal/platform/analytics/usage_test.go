package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

// ---------------------------------------------------------------------------
// Usage tracker
// ---------------------------------------------------------------------------

func TestUsageTracker_Record(t *testing.T) {
	tracker := NewUsageTracker()
	tracker.Record(&RequestMetric{
		Timestamp:  time.Now(),
		Method:     "GET",
		Route:      "/",
		StatusCode: 200,
		Duration:   50 * time.Millisecond,
		SessionID:  "s1",
	})

	overview := tracker.GetOverview()
	if overview.TotalRequests != 1 {
		t.Fatalf("expected TotalRequests=1, got %d", overview.TotalRequests)
	}
	if overview.TotalErrors != 0 {
		t.Fatalf("expected TotalErrors=0, got %d", overview.TotalErrors)
	}
	if overview.UniqueSessions != 1 {
		t.Fatalf("expected 1 session, got %d", overview.UniqueSessions)
	}
}

func TestUsageTracker_ErrorRate(t *testing.T) {
	tracker := NewUsageTracker()
	for _, code := range []int{200, 200, 409, 422} {
		tracker.Record(&RequestMetric{Timestamp: time.Now(), Route: "/api/v1/queries", StatusCode: code})
	}

	stats := tracker.GetRouteStats("/api/v1/queries")
	if stats == nil {
		t.Fatal("expected route stats")
	}
	if stats.ErrorRate != 0.5 {
		t.Errorf("expected error rate 0.5, got %v", stats.ErrorRate)
	}
	if stats.StatusBreakdown[409] != 1 {
		t.Errorf("expected one 409, got %v", stats.StatusBreakdown)
	}
}

func TestUsageTracker_GetRouteStats_NotFound(t *testing.T) {
	tracker := NewUsageTracker()
	if tracker.GetRouteStats("/missing") != nil {
		t.Error("expected nil for unknown route")
	}
}

func TestUsageTracker_GetTopRoutes(t *testing.T) {
	tracker := NewUsageTracker()
	for i := 0; i < 3; i++ {
		tracker.Record(&RequestMetric{Timestamp: time.Now(), Route: "/", StatusCode: 200})
	}
	tracker.Record(&RequestMetric{Timestamp: time.Now(), Route: "/health", StatusCode: 200})

	top := tracker.GetTopRoutes(1)
	if len(top) != 1 {
		t.Fatalf("expected 1 route, got %d", len(top))
	}
	if top[0].Route != "/" {
		t.Errorf("expected / to be busiest, got %s", top[0].Route)
	}
}

func TestUsageTracker_ConcurrentAccess(t *testing.T) {
	tracker := NewUsageTracker()
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tracker.Record(&RequestMetric{Timestamp: time.Now(), Route: "/", StatusCode: 200, Duration: time.Millisecond})
			}
		}()
	}
	wg.Wait()

	if got := tracker.GetOverview().TotalRequests; got != 1000 {
		t.Fatalf("expected 1000 requests, got %d", got)
	}
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func TestUsageMiddleware_RecordsRoute(t *testing.T) {
	tracker := NewUsageTracker()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/charts/risk.svg", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/charts/:name")
	c.Set("session_id", "sess-1")

	handler := UsageMiddleware(tracker)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := tracker.GetRouteStats("/charts/:name")
	if stats == nil || stats.TotalRequests != 1 {
		t.Fatalf("expected one request on route pattern, got %+v", stats)
	}
	if tracker.GetOverview().UniqueSessions != 1 {
		t.Error("expected session to be counted")
	}
}

func TestUsageMiddleware_CapturesHTTPErrorCode(t *testing.T) {
	tracker := NewUsageTracker()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/queries", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := UsageMiddleware(tracker)(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "busy")
	})
	if err := handler(c); err == nil {
		t.Fatal("expected handler error to propagate")
	}

	stats := tracker.GetRouteStats("/api/v1/queries")
	if stats == nil {
		t.Fatal("expected route stats")
	}
	if stats.StatusBreakdown[http.StatusConflict] != 1 {
		t.Errorf("expected 409 in breakdown, got %v", stats.StatusBreakdown)
	}
}

func TestUsageMiddleware_CapturesDuration(t *testing.T) {
	tracker := NewUsageTracker()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := UsageMiddleware(tracker)(func(c echo.Context) error {
		time.Sleep(5 * time.Millisecond)
		return c.String(http.StatusOK, "ok")
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if avg := tracker.GetAverageLatency(); avg < 5*time.Millisecond {
		t.Fatalf("expected duration >= 5ms, got %v", avg)
	}
}

// ---------------------------------------------------------------------------
// Handler
// ---------------------------------------------------------------------------

func TestHandler_Usage(t *testing.T) {
	usage := NewUsageTracker()
	usage.Record(&RequestMetric{Timestamp: time.Now(), Route: "/", StatusCode: 200})

	e := echo.New()
	h := NewHandler(NewRunTracker(10), usage)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/usage", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandleUsage(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result UsageOverview
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.TotalRequests != 1 {
		t.Fatalf("expected TotalRequests=1, got %d", result.TotalRequests)
	}
}

func TestHandler_Usage_Disabled(t *testing.T) {
	e := echo.New()
	h := NewHandler(NewRunTracker(10), nil)
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	if err := h.HandleUsage(c); err == nil {
		t.Fatal("expected error when usage tracking is disabled")
	}
}
