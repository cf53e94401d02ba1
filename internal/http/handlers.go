package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/marcosilvestroni/summarize-commits/internal/artifact"
	"github.com/marcosilvestroni/summarize-commits/internal/chart"
	"github.com/marcosilvestroni/summarize-commits/internal/core"
	"github.com/marcosilvestroni/summarize-commits/internal/log"
	"github.com/marcosilvestroni/summarize-commits/internal/ports"
)

type (
	indexView struct {
		Year    int
		Years   []int
		Ready   bool
		LastRun *ports.RunResult
	}

	yearView struct {
		Year    int
		Years   []int
		Weeks   []core.Week
		Max     int
		Summary core.YearSummary
		Undated int
	}

	yearsResponse struct {
		Years   []int    `json:"years"`
		Total   int      `json:"total"`
		Undated []string `json:"undated"`
	}

	calendarResponse struct {
		Year  int         `json:"year"`
		Max   int         `json:"max"`
		Weeks []core.Week `json:"weeks"`
	}
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady reports 503 until templates are parsed and an aggregate is loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if agg, err := s.backend.Snapshot(ctx); err != nil {
		checks["contributions"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["contributions"] = map[string]any{"days": agg.Len(), "total": agg.Total()}
	}

	checks["cache"] = map[string]any{
		"calendar_entries": s.calendars.Size(),
		"summary_entries":  s.summaries.Size(),
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	view := indexView{LastRun: s.lastRun.Load()}
	agg, err := s.backend.Snapshot(r.Context())
	switch {
	case err == nil:
		view.Ready = true
		view.Years = agg.Years()
	case !errors.Is(err, ports.ErrNotReady):
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Snapshot read failed", log.FieldError, err)
	}
	view.Year = DefaultYear(r, view.Years)

	s.render(w, r, http.StatusOK, "index.html", view)
}

// handleYearPartial renders the heatmap and project table of one year. It
// answers with the loading partial while no aggregate exists, so htmx keeps
// polling, and with the error partial on failure.
func (s *Server) handleYearPartial(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYear(r)
	if err != nil {
		s.render(w, r, http.StatusBadRequest, "error.html", err.Error())
		return
	}
	agg, err := s.backend.Snapshot(r.Context())
	if errors.Is(err, ports.ErrNotReady) {
		s.render(w, r, http.StatusOK, "loading.html", year)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Snapshot read failed", log.FieldYear, year, log.FieldError, err)
		s.render(w, r, http.StatusInternalServerError, "error.html", "Could not load contributions.")
		return
	}

	weeks := s.calendar(r.Context(), year, agg)
	s.render(w, r, http.StatusOK, "year.html", yearView{
		Year:    year,
		Years:   agg.Years(),
		Weeks:   weeks,
		Max:     core.MaxCount(weeks),
		Summary: s.summary(r.Context(), year, agg),
		Undated: len(agg.Undated()),
	})
}

func (s *Server) handleYearChart(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYear(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	agg, err := s.backend.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chart.RenderYear(w, year, agg); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Chart render failed", log.FieldYear, year, log.FieldError, err)
	}
}

func (s *Server) handleChartPage(w http.ResponseWriter, r *http.Request) {
	agg, err := s.backend.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chart.RenderPage(w, agg); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Chart render failed", log.FieldError, err)
	}
}

// handleContributions serves the artifact: every record, newest date first.
func (s *Server) handleContributions(w http.ResponseWriter, r *http.Request) {
	records, err := s.backend.ListContributions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := artifact.Encode(w, core.FromRecords(records)); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Encode contributions failed", log.FieldError, err)
	}
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	agg, err := s.backend.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	undated := agg.Undated()
	if undated == nil {
		undated = []string{}
	}
	writeJSON(w, http.StatusOK, yearsResponse{
		Years:   agg.Years(),
		Total:   agg.Total(),
		Undated: undated,
	})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYear(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	agg, err := s.backend.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	weeks := s.calendar(r.Context(), year, agg)
	writeJSON(w, http.StatusOK, calendarResponse{Year: year, Max: core.MaxCount(weeks), Weeks: weeks})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYear(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	agg, err := s.backend.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.summary(r.Context(), year, agg))
}

// handleRefresh re-aggregates the input. Concurrent calls share one run, and
// the run outlives a client that disconnects.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), refreshTimeout)
	defer cancel()

	v, err, shared := s.refreshes.Do("refresh", func() (any, error) {
		return s.backend.Refresh(ctx)
	})
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Refresh failed",
			log.FieldOperation, log.OpRefresh, log.FieldError, err)
		if IsHTMX(r) {
			ErrorResponse(http.StatusInternalServerError, "Refresh failed").Write(w)
			return
		}
		writeError(w, r, err)
		return
	}
	res := v.(ports.RunResult)

	s.InvalidateCaches()
	status := http.StatusOK
	if res.Queued {
		status = http.StatusAccepted
	} else {
		s.lastRun.Store(&res)
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Refresh served",
		log.FieldRunID, res.RunID, log.FieldTotal, res.Total, "queued", res.Queued, "shared", shared)

	if !IsHTMX(r) {
		writeJSON(w, status, res)
		return
	}
	b := NewHTMXResponse().Status(status)
	if res.Queued {
		b.TriggerQueued().TriggerNotification(NotificationInfo, "Refresh queued", 3000)
	} else {
		b.TriggerRefreshed(res.RunID, res.Total).
			TriggerSuccessNotification(fmt.Sprintf("Aggregated %s commits from %d %s",
				humanize.Comma(int64(res.Total)), res.FilesRead, pluralFiles(res.FilesRead)))
	}
	b.Write(w)
}

func pluralFiles(n int) string {
	if n == 1 {
		return "file"
	}
	return "files"
}

// render executes name into w. Errors after the header is written are only
// logged.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			"template", name, log.FieldOperation, log.OpRender, log.FieldError, err)
	}
}
