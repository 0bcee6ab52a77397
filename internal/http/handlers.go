package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"salesdash/internal/chart"
	applog "salesdash/internal/log"
	"salesdash/internal/services"
)

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.queries.List(r.Context(), services.ListParams{
		Page:     intParam(q, "page", services.DefaultPage),
		PageSize: intParam(q, "perPage", services.DefaultPageSize),
		Search:   sanitizeInput(q.Get("search")),
	})
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTransactionsByMonth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, err := monthParam(q)
	if err != nil {
		s.writeError(w, r, applog.OpListByMonth, err)
		return
	}
	res, err := s.queries.ListByMonth(r.Context(), month,
		intParam(q, "page", services.DefaultPage),
		intParam(q, "limit", services.DefaultPageSize))
	if err != nil {
		s.writeError(w, r, applog.OpListByMonth, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSearchTransactionsByMonth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, err := monthParam(q)
	if err != nil {
		s.writeError(w, r, applog.OpSearchByMonth, err)
		return
	}
	res, err := s.queries.SearchByMonth(r.Context(), month,
		intParam(q, "page", services.DefaultPage),
		intParam(q, "limit", services.DefaultPageSize),
		sanitizeInput(q.Get("searchText")))
	if err != nil {
		s.writeError(w, r, applog.OpSearchByMonth, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r.URL.Query())
	if err != nil {
		s.writeError(w, r, applog.OpStatistics, err)
		return
	}
	res, err := s.aggregates.Statistics(r.Context(), month)
	if err != nil {
		s.writeError(w, r, applog.OpStatistics, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleBarChart(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r.URL.Query())
	if err != nil {
		s.writeError(w, r, applog.OpHistogram, err)
		return
	}
	res, err := s.aggregates.Histogram(r.Context(), month)
	if err != nil {
		s.writeError(w, r, applog.OpHistogram, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleBarChartPNG renders the month's histogram as a PNG image.
func (s *Server) handleBarChartPNG(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r.URL.Query())
	if err != nil {
		s.writeError(w, r, applog.OpRender, err)
		return
	}
	entries, err := s.aggregates.Histogram(r.Context(), month)
	if err != nil {
		s.writeError(w, r, applog.OpRender, err)
		return
	}

	// Render into a buffer so a failed render can still produce a JSON error.
	var buf bytes.Buffer
	if err := chart.RenderHistogram(&buf, entries, chart.DefaultOptions(month)); err != nil {
		s.writeError(w, r, applog.OpRender, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handlePieChart(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r.URL.Query())
	if err != nil {
		s.writeError(w, r, applog.OpCategoryBreakdown, err)
		return
	}
	res, err := s.aggregates.CategoryBreakdown(r.Context(), month)
	if err != nil {
		s.writeError(w, r, applog.OpCategoryBreakdown, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCombined(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r.URL.Query())
	if err != nil {
		s.writeError(w, r, applog.OpCombined, err)
		return
	}
	res, err := s.aggregates.Combined(r.Context(), month)
	if err != nil {
		s.writeError(w, r, applog.OpCombined, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleCategories lists distinct categories; month is optional here.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month := 0
	if q.Get("month") != "" {
		m, err := monthParam(q)
		if err != nil {
			s.writeError(w, r, applog.OpCategoryBreakdown, err)
			return
		}
		month = m
	}
	res, err := s.aggregates.Categories(r.Context(), month)
	if err != nil {
		s.writeError(w, r, applog.OpCategoryBreakdown, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": res})
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady checks that the store answers within a short deadline.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "not_configured"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.GetMetrics().ClientCount,
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	limitMetrics := s.rateLimiter.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP rate_limit_rejected_total Requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_rejected_total counter\n")
	fmt.Fprintf(w, "rate_limit_rejected_total %d\n\n", limitMetrics.Rejected)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", limitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.started).Seconds())
}
