package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRunTracker_RecordRun(t *testing.T) {
	rt := NewRunTracker(10)
	now := time.Now()
	rt.RecordRun(RunMetric{Timestamp: now, SessionID: "a", QueryType: "individual", Steps: 6, Duration: 7200 * time.Millisecond})
	rt.RecordRun(RunMetric{Timestamp: now.Add(time.Second), SessionID: "b", QueryType: "individual", Steps: 6, Duration: 7400 * time.Millisecond})

	s := rt.Summary("individual")
	if s == nil {
		t.Fatal("expected summary for individual")
	}
	if s.TotalRuns != 2 {
		t.Errorf("expected 2 runs, got %d", s.TotalRuns)
	}
	if s.TotalSteps != 12 {
		t.Errorf("expected 12 steps, got %d", s.TotalSteps)
	}
	if s.AvgDuration != 7300*time.Millisecond {
		t.Errorf("expected avg 7.3s, got %v", s.AvgDuration)
	}
	if !s.LastRunAt.Equal(now.Add(time.Second)) {
		t.Errorf("expected last run at the later timestamp, got %v", s.LastRunAt)
	}
	if rt.Summary("population") != nil {
		t.Error("expected nil summary for a type that never ran")
	}
}

func TestRunTracker_RecentNewestFirst(t *testing.T) {
	rt := NewRunTracker(3)
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		rt.RecordRun(RunMetric{Timestamp: time.Unix(int64(i), 0), SessionID: id, QueryType: "population", Steps: 5})
	}

	recent := rt.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("expected ring buffer capped at 3, got %d", len(recent))
	}
	got := recent[0].SessionID + recent[1].SessionID + recent[2].SessionID
	if got != "edc" {
		t.Errorf("expected newest first edc, got %s", got)
	}

	if len(rt.Recent(2)) != 2 {
		t.Error("expected limit to be honoured")
	}
}

func TestRunTracker_RecentEmpty(t *testing.T) {
	rt := NewRunTracker(5)
	if got := rt.Recent(10); len(got) != 0 {
		t.Errorf("expected no runs, got %d", len(got))
	}
}

func TestRunTracker_Overview(t *testing.T) {
	rt := NewRunTracker(10)
	rt.RecordRun(RunMetric{Timestamp: time.Now(), QueryType: "population", Steps: 5})
	rt.RecordRun(RunMetric{Timestamp: time.Now(), QueryType: "individual", Steps: 6})

	o := rt.Overview()
	if o.TotalRuns != 2 {
		t.Errorf("expected 2 runs, got %d", o.TotalRuns)
	}
	if len(o.ByType) != 2 || o.ByType[0].QueryType != "individual" {
		t.Errorf("expected by-type sorted with individual first, got %+v", o.ByType)
	}
}

func TestHandler_Runs(t *testing.T) {
	rt := NewRunTracker(10)
	rt.RecordRun(RunMetric{Timestamp: time.Now(), QueryType: "population", Steps: 5, Duration: 6 * time.Second})

	e := echo.New()
	h := NewHandler(rt, NewUsageTracker())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/runs?limit=5", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandleRuns(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result RunOverview
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.TotalRuns != 1 || len(result.Recent) != 1 {
		t.Errorf("unexpected overview: %+v", result)
	}
}

func TestHandler_RunsByType_NotFound(t *testing.T) {
	e := echo.New()
	h := NewHandler(NewRunTracker(10), nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("type")
	c.SetParamValues("individual")

	err := h.HandleRunsByType(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_History(t *testing.T) {
	rt := NewRunTracker(10)
	start := time.Now()
	for i := 0; i < 5; i++ {
		rt.RecordRun(RunMetric{Timestamp: start.Add(time.Duration(i) * time.Second), QueryType: "individual", Steps: 6})
	}

	e := echo.New()
	h := NewHandler(rt, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history?limit=2&offset=1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandleHistory(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var page struct {
		Data    []RunMetric `json:"data"`
		Total   int         `json:"total"`
		HasMore bool        `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if page.Total != 5 || len(page.Data) != 2 || !page.HasMore {
		t.Fatalf("unexpected page: %+v", page)
	}
	if !page.Data[0].Timestamp.Equal(start.Add(3 * time.Second)) {
		t.Errorf("expected second-newest run first, got %v", page.Data[0].Timestamp)
	}
}
