package http

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

const readyTimeout = 5 * time.Second

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	OK(w, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady runs every registered dependency check concurrently.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]string, len(s.readyChecks))
		failed bool
	)
	for name, check := range s.readyChecks {
		wg.Add(1)
		go func(name string, check func(context.Context) error) {
			defer wg.Done()
			err := check(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				checks[name] = "failed: " + err.Error()
				failed = true
				return
			}
			checks[name] = "ok"
		}(name, check)
	}
	wg.Wait()

	status, code := "ready", http.StatusOK
	if failed {
		status, code = "not_ready", http.StatusServiceUnavailable
		s.logger.WarnContext(r.Context(), "Readiness check failed", "checks", checks)
	}
	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

type metric struct {
	name, help, kind string
	value            any
}

// handleMetrics provides request and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	metrics := []metric{
		{"http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests},
		{"http_requests_in_flight", "Requests currently being served", "gauge", traceMetrics.InFlight},
		{"http_client_errors_total", "Responses with a 4xx status", "counter", traceMetrics.ClientErrors},
		{"http_server_errors_total", "Responses with a 5xx status", "counter", traceMetrics.ServerErrors},
		{"http_response_time_ms_avg", "Average response time in milliseconds", "gauge", traceMetrics.AverageResponseTime.Milliseconds()},
		{"rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits},
		{"active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount},
		{"suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests},
		{"uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.started).Seconds())},
	}
	if s.cacheStats != nil {
		cs := s.cacheStats()
		metrics = append(metrics,
			metric{"report_cache_hits_total", "Report cache hits", "counter", cs.Hits},
			metric{"report_cache_misses_total", "Report cache misses", "counter", cs.Misses},
			metric{"report_cache_evictions_total", "Report cache evictions", "counter", cs.Evictions},
		)
		if cs.Entries >= 0 {
			metrics = append(metrics, metric{"report_cache_entries", "Current report cache entries", "gauge", cs.Entries})
		}
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].name < metrics[j].name })

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	for _, m := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", m.name, m.kind)
		fmt.Fprintf(w, "%s %v\n\n", m.name, m.value)
	}
}
