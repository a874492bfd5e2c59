package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.startTime).Round(time.Second).String(),
	}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]any{
		"rate_limiter": map[string]any{"active_clients": s.rateLimiter.ActiveClients()},
	}
	status := http.StatusOK
	state := "ready"

	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", "check", "store", "error", err)
			checks["store"] = err.Error()
			status = http.StatusServiceUnavailable
			state = "not_ready"
		} else {
			checks["store"] = "ok"
		}
	}

	NewJSONResponse().Status(status).Data(map[string]any{
		"status": state,
		"checks": checks,
	}).Write(w)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.traceMiddleware.GetMetrics()
	limiterMetrics := s.rateLimiter.GetMetrics()
	aiLimiterMetrics := s.aiLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	fmt.Fprintf(w, "# HELP gastos_uptime_seconds Seconds since the server started\n")
	fmt.Fprintf(w, "# TYPE gastos_uptime_seconds gauge\n")
	fmt.Fprintf(w, "gastos_uptime_seconds %.0f\n", time.Since(s.metrics.startTime).Seconds())

	fmt.Fprintf(w, "# HELP gastos_http_requests_total Total HTTP requests\n")
	fmt.Fprintf(w, "# TYPE gastos_http_requests_total counter\n")
	fmt.Fprintf(w, "gastos_http_requests_total %d\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP gastos_http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE gastos_http_server_errors_total counter\n")
	fmt.Fprintf(w, "gastos_http_server_errors_total %d\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP gastos_http_last_response_time_microseconds Duration of the last request\n")
	fmt.Fprintf(w, "# TYPE gastos_http_last_response_time_microseconds gauge\n")
	fmt.Fprintf(w, "gastos_http_last_response_time_microseconds %d\n", traceMetrics.LastResponseTimeUs)

	fmt.Fprintf(w, "# HELP gastos_rate_limit_active_clients Clients tracked by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE gastos_rate_limit_active_clients gauge\n")
	fmt.Fprintf(w, "gastos_rate_limit_active_clients %d\n", limiterMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP gastos_rate_limit_hits_total Requests rejected by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE gastos_rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "gastos_rate_limit_hits_total %d\n", limiterMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP gastos_ai_rate_limit_hits_total Requests rejected by the AI route limiter\n")
	fmt.Fprintf(w, "# TYPE gastos_ai_rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "gastos_ai_rate_limit_hits_total %d\n", aiLimiterMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP gastos_security_suspicious_requests_total Requests matching attack patterns\n")
	fmt.Fprintf(w, "# TYPE gastos_security_suspicious_requests_total counter\n")
	fmt.Fprintf(w, "gastos_security_suspicious_requests_total %d\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP gastos_transactions_created_total Transactions created through the API\n")
	fmt.Fprintf(w, "# TYPE gastos_transactions_created_total counter\n")
	fmt.Fprintf(w, "gastos_transactions_created_total %d\n", s.metrics.transactionsCreated.Load())

	fmt.Fprintf(w, "# HELP gastos_analyses_served_total Analyses returned by the API\n")
	fmt.Fprintf(w, "# TYPE gastos_analyses_served_total counter\n")
	fmt.Fprintf(w, "gastos_analyses_served_total %d\n", s.metrics.analysesServed.Load())
}
