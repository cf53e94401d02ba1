package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marcosilvestroni/summarize-commits/internal/core"
	"github.com/marcosilvestroni/summarize-commits/internal/log"
	"github.com/marcosilvestroni/summarize-commits/internal/metrics"
	"github.com/marcosilvestroni/summarize-commits/internal/middleware/ratelimit"
	"github.com/marcosilvestroni/summarize-commits/internal/ports"
)

type fakeBackend struct {
	mu        sync.Mutex
	agg       core.Aggregate
	ready     bool
	err       error
	queued    bool
	refreshes int
}

func (f *fakeBackend) ListContributions(ctx context.Context) ([]core.ContributionRecord, error) {
	agg, err := f.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return agg.Records(), nil
}

func (f *fakeBackend) Snapshot(context.Context) (core.Aggregate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return core.Aggregate{}, f.err
	}
	if !f.ready {
		return core.Aggregate{}, ports.ErrNotReady
	}
	return f.agg, nil
}

func (f *fakeBackend) Refresh(context.Context) (ports.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.queued {
		return ports.RunResult{RunID: "queued", Queued: true}, nil
	}
	f.ready = true
	return ports.RunResult{RunID: "run-1", FilesRead: 2, Days: f.agg.Len(), Total: f.agg.Total(), FinishedAt: time.Now()}, nil
}

func sampleAggregate() core.Aggregate {
	return core.AggregateFiles([]core.File{
		{Name: "contributions_report_alpha.csv", Rows: []core.Row{
			{"Date": "2024-03-01"}, {"Date": "2024-03-01"}, {"Date": "2023-12-31"},
		}},
		{Name: "contributions_report_beta.csv", Rows: []core.Row{
			{"Date": "2024-03-01"}, {"Date": "not-a-date"},
		}},
	})
}

func newTestServer(t *testing.T, b *fakeBackend, opts Options) *Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = log.New(log.Config{Output: io.Discard, Component: log.ComponentHTTP})
	}
	s := NewServer(":0", b, opts)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(s *Server, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, req)
	return w
}

func TestHealthAndReadiness(t *testing.T) {
	b := &fakeBackend{agg: sampleAggregate()}
	s := newTestServer(t, b, Options{})

	if w := do(s, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", w.Code)
	}

	w := do(s, http.MethodGet, "/readyz", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before load = %d, want 503", w.Code)
	}

	b.ready = true
	w = do(s, http.MethodGet, "/readyz", nil)
	if w.Code != http.StatusOK {
		t.Errorf("readyz after load = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestAPINotReady(t *testing.T) {
	s := newTestServer(t, &fakeBackend{}, Options{})

	for _, path := range []string{
		"/api/contributions",
		"/api/years",
		"/api/years/2024/calendar",
		"/api/years/2024/summary",
	} {
		w := do(s, http.MethodGet, path, nil)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s = %d, want 503", path, w.Code)
		}
		if w.Header().Get("Retry-After") == "" {
			t.Errorf("GET %s: missing Retry-After", path)
		}
	}
}

func TestAPIBackendFailureIsHidden(t *testing.T) {
	s := newTestServer(t, &fakeBackend{err: errors.New("disk on fire")}, Options{})

	w := do(s, http.MethodGet, "/api/years", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if strings.Contains(w.Body.String(), "disk on fire") {
		t.Errorf("internal error leaked: %s", w.Body.String())
	}
}

func TestAPIContributions(t *testing.T) {
	s := newTestServer(t, &fakeBackend{agg: sampleAggregate(), ready: true}, Options{})

	w := do(s, http.MethodGet, "/api/contributions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var records []core.ContributionRecord
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for _, r := range records {
		if r.Date == "2024-03-01" && r.Count != 3 {
			t.Errorf("2024-03-01 count = %d, want 3", r.Count)
		}
	}
}

func TestAPIYears(t *testing.T) {
	s := newTestServer(t, &fakeBackend{agg: sampleAggregate(), ready: true}, Options{})

	w := do(s, http.MethodGet, "/api/years", nil)
	var got yearsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Years) != 2 || got.Years[0] != 2024 || got.Years[1] != 2023 {
		t.Errorf("years = %v, want [2024 2023]", got.Years)
	}
	if got.Total != 5 {
		t.Errorf("total = %d, want 5", got.Total)
	}
	if len(got.Undated) != 1 || got.Undated[0] != "not-a-date" {
		t.Errorf("undated = %v", got.Undated)
	}
}

func TestAPICalendar(t *testing.T) {
	m := metrics.New()
	s := newTestServer(t, &fakeBackend{agg: sampleAggregate(), ready: true}, Options{Metrics: m})

	w := do(s, http.MethodGet, "/api/years/2024/calendar", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var got calendarResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Year != 2024 || got.Max != 3 {
		t.Errorf("year=%d max=%d, want 2024 and 3", got.Year, got.Max)
	}
	if n := len(got.Weeks); n < 53 || n > 54 {
		t.Errorf("weeks = %d, want 53 or 54", n)
	}
	if s.calendars.Size() != 1 {
		t.Errorf("calendar cache size = %d, want 1", s.calendars.Size())
	}

	if w := do(s, http.MethodGet, "/api/years/20x4/calendar", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad year status = %d, want 400", w.Code)
	}
}

func TestAPISummary(t *testing.T) {
	s := newTestServer(t, &fakeBackend{agg: sampleAggregate(), ready: true}, Options{})

	w := do(s, http.MethodGet, "/api/years/2024/summary", nil)
	var got core.YearSummary
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Year != 2024 || got.Total != 3 {
		t.Errorf("summary = %+v", got)
	}
	if len(got.Projects) != 2 {
		t.Errorf("projects = %v, want ALPHA and BETA", got.Projects)
	}

	w = do(s, http.MethodGet, "/api/years/1999/summary", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total != 0 || len(got.Projects) != 0 {
		t.Errorf("empty year summary = %+v", got)
	}
}

func TestLayoutsFollowSnapshotChanges(t *testing.T) {
	b := &fakeBackend{agg: sampleAggregate(), ready: true}
	s := newTestServer(t, b, Options{CacheTTL: 0})

	summaryTotal := func() int {
		t.Helper()
		w := do(s, http.MethodGet, "/api/years/2024/summary", nil)
		var got core.YearSummary
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return got.Total
	}
	calendarMax := func() int {
		t.Helper()
		w := do(s, http.MethodGet, "/api/years/2024/calendar", nil)
		var got calendarResponse
		if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return got.Max
	}

	if got := summaryTotal(); got != 3 {
		t.Fatalf("summary total = %d, want 3", got)
	}
	if got := calendarMax(); got != 3 {
		t.Fatalf("calendar max = %d, want 3", got)
	}

	// Replaced behind the server's back, as a worker process would.
	b.mu.Lock()
	b.agg = core.AggregateFiles([]core.File{
		{Name: "contributions_report_alpha.csv", Rows: []core.Row{{"Date": "2024-05-05"}}},
	})
	b.mu.Unlock()

	if got := summaryTotal(); got != 1 {
		t.Errorf("summary total after swap = %d, want 1", got)
	}
	if got := calendarMax(); got != 1 {
		t.Errorf("calendar max after swap = %d, want 1", got)
	}

	// Same snapshot again is served from the cache.
	before := s.summaries.Size()
	summaryTotal()
	if s.summaries.Size() != before {
		t.Errorf("summary cache grew from %d to %d on a repeated request", before, s.summaries.Size())
	}
}

func TestRefresh(t *testing.T) {
	b := &fakeBackend{agg: sampleAggregate()}
	s := newTestServer(t, b, Options{})

	b.ready = true
	do(s, http.MethodGet, "/api/years/2024/calendar", nil)
	if s.calendars.Size() != 1 {
		t.Fatalf("calendar not cached")
	}

	w := do(s, http.MethodPost, "/api/refresh", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var res ports.RunResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.RunID != "run-1" || res.Total != 5 {
		t.Errorf("result = %+v", res)
	}
	if s.calendars.Size() != 0 {
		t.Error("refresh did not purge caches")
	}
	if s.lastRun.Load() == nil {
		t.Error("last run not recorded")
	}
}

func TestRefreshHTMX(t *testing.T) {
	s := newTestServer(t, &fakeBackend{agg: sampleAggregate()}, Options{})

	w := do(s, http.MethodPost, "/api/refresh", map[string]string{"HX-Request": "true"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	trigger := w.Header().Get("HX-Trigger")
	for _, want := range []string{EventRefreshed, EventShowNotification, "Aggregated 5 commits from 2 files"} {
		if !strings.Contains(trigger, want) {
			t.Errorf("HX-Trigger missing %q: %s", want, trigger)
		}
	}
}

func TestRefreshQueued(t *testing.T) {
	s := newTestServer(t, &fakeBackend{queued: true}, Options{})

	w := do(s, http.MethodPost, "/api/refresh", nil)
	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", w.Code)
	}
	if s.lastRun.Load() != nil {
		t.Error("queued refresh must not be recorded as a finished run")
	}
}

func TestRefreshRateLimited(t *testing.T) {
	b := &fakeBackend{agg: sampleAggregate()}
	s := newTestServer(t, b, Options{RefreshLimit: ratelimit.Config{Requests: 1, Window: time.Minute}})

	if w := do(s, http.MethodPost, "/api/refresh", nil); w.Code != http.StatusOK {
		t.Fatalf("first refresh = %d", w.Code)
	}
	w := do(s, http.MethodPost, "/api/refresh", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second refresh = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if b.refreshes != 1 {
		t.Errorf("backend refreshed %d times, want 1", b.refreshes)
	}
}

func TestRefreshMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, &fakeBackend{}, Options{})
	if w := do(s, http.MethodGet, "/api/refresh", nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/refresh = %d, want 405", w.Code)
	}
}

func TestDashboard(t *testing.T) {
	b := &fakeBackend{agg: sampleAggregate()}
	s := newTestServer(t, b, Options{})

	w := do(s, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("index = %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `id="year-view"`) {
		t.Error("index missing year view")
	}

	w = do(s, http.MethodGet, "/ui/years/2024", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Aggregating contributions") {
		t.Errorf("partial before load = %d: %s", w.Code, w.Body.String())
	}

	b.ready = true
	w = do(s, http.MethodGet, "/ui/years/2024", nil)
	body := w.Body.String()
	if w.Code != http.StatusOK {
		t.Fatalf("partial = %d: %s", w.Code, body)
	}
	for _, want := range []string{"level-2", "ALPHA", "BETA", "2024-03-01: 3 commits"} {
		if !strings.Contains(body, want) {
			t.Errorf("partial missing %q", want)
		}
	}

	w = do(s, http.MethodGet, "/ui/years/1999", nil)
	if !strings.Contains(w.Body.String(), "No contributions found for 1999") {
		t.Errorf("empty year not reported: %s", w.Body.String())
	}

	b.err = errors.New("boom")
	w = do(s, http.MethodGet, "/ui/years/2024", nil)
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), `class="error"`) {
		t.Errorf("failed partial = %d: %s", w.Code, w.Body.String())
	}
}

func TestChartRoutes(t *testing.T) {
	s := newTestServer(t, &fakeBackend{agg: sampleAggregate(), ready: true}, Options{})

	w := do(s, http.MethodGet, "/ui/years/2024/chart", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("chart = %d", w.Code)
	}
	if csp := w.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "'unsafe-inline'") || !strings.Contains(csp, "frame-ancestors 'self'") {
		t.Errorf("chart CSP not relaxed: %s", csp)
	}

	w = do(s, http.MethodGet, "/chart", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("chart page = %d", w.Code)
	}
}

func TestMiddlewareChain(t *testing.T) {
	m := metrics.New()
	s := newTestServer(t, &fakeBackend{agg: sampleAggregate(), ready: true}, Options{Metrics: m})

	w := do(s, http.MethodGet, "/api/years", map[string]string{"X-Request-ID": "abc"})
	if got := w.Header().Get("X-Request-ID"); got != "abc" {
		t.Errorf("X-Request-ID = %q, want abc", got)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers not applied")
	}

	if w := do(s, http.MethodGet, "/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown path = %d, want 404", w.Code)
	}

	w = do(s, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Errorf("metrics = %d", w.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	s := newTestServer(t, &fakeBackend{}, Options{})

	w := do(s, http.MethodGet, "/static/style.css", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("style.css = %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Cache-Control"), "max-age=3600") {
		t.Errorf("Cache-Control = %q", w.Header().Get("Cache-Control"))
	}
}
