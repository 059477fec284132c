package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"budget/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	})
}

// handleReady checks templates and that the ledger can be read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.svc.Ping(ctx); err != nil {
		checks["ledger"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["ledger"] = "ok"
	}

	stats := s.svc.Store().CacheStats()
	checks["cache"] = map[string]any{
		"entries": stats.Entries,
		"hits":    stats.Hits,
		"misses":  stats.Misses,
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.GetMetrics().ClientCount,
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters and gauges in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateMetrics := s.rateLimiter.GetMetrics()
	cacheStats := s.svc.Store().CacheStats()

	metrics := []struct {
		name, help, kind string
		value            any
	}{
		{"http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests},
		{"http_server_errors_total", "HTTP responses with a 5xx status", "counter", traceMetrics.ServerErrors},
		{"http_request_duration_avg_microseconds", "Mean request latency", "gauge", traceMetrics.AverageMicros()},
		{"ledger_appends_total", "Transactions appended", "counter", s.appMetrics.appended.Load()},
		{"ledger_deletes_total", "Transactions deleted", "counter", s.appMetrics.deleted.Load()},
		{"ledger_validation_errors_total", "Rejected submissions and queries", "counter", s.appMetrics.validationErrors.Load()},
		{"ledger_storage_errors_total", "Corrupt or unavailable storage errors", "counter", s.appMetrics.storageErrors.Load()},
		{"ledger_cache_hits_total", "Ledger snapshot cache hits", "counter", cacheStats.Hits},
		{"ledger_cache_misses_total", "Ledger snapshot cache misses", "counter", cacheStats.Misses},
		{"ledger_cache_entries", "Ledger snapshot cache entries", "gauge", cacheStats.Entries},
		{"rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", rateMetrics.Rejected},
		{"active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateMetrics.ClientCount},
		{"suspicious_requests_total", "Total suspicious requests detected", "counter", s.securityDetector.SuspiciousCount()},
		{"uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.appMetrics.uptime).Seconds())},
	}

	w.WriteHeader(http.StatusOK)
	for _, m := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", m.name, m.kind)
		fmt.Fprintf(w, "%s %v\n\n", m.name, m.value)
	}
}

// recordError bumps the error counters for metrics.
func (s *Server) recordError(err error) {
	switch errorType(err) {
	case log.ErrorTypeValidation:
		s.appMetrics.validationErrors.Add(1)
	case log.ErrorTypeCorrupt, log.ErrorTypeUnavailable:
		s.appMetrics.storageErrors.Add(1)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
