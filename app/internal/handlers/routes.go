package handlers

import (
	"net/http"
	"time"

	"netwatch/app/internal/ratelimit"
	"netwatch/app/internal/security"
)

// Deps are the components the HTTP surface needs.
type Deps struct {
	Stats     StatsQuerier
	Issues    IssueReader
	Monitor   MonitorController
	Speedtest SpeedtestRunner // nil when speedtests are disabled
	Events    EventSource
	Metrics   http.Handler // nil when metrics are disabled

	// ControlLimiter throttles start/stop/run requests per client.
	ControlLimiter   *ratelimit.Limiter
	TrustProxy       bool // key the limiter on X-Forwarded-For
	SpeedtestTimeout time.Duration
}

// SetupRoutes configures all HTTP routes and middlewares
func SetupRoutes(d Deps) http.Handler {
	get := methods(http.MethodGet)
	post := methods(http.MethodPost)

	control := func(h http.HandlerFunc) http.Handler {
		if d.ControlLimiter == nil {
			return h
		}
		return security.RateLimit(d.ControlLimiter, d.TrustProxy, h)
	}

	api := http.NewServeMux()

	// Monitoring control
	api.Handle("/api/monitoring/start", control(post(HandleMonitoringStart(d.Monitor))))
	api.Handle("/api/monitoring/stop", control(post(HandleMonitoringStop(d.Monitor))))
	api.HandleFunc("/api/monitoring/status", get(HandleMonitoringStatus(d.Monitor)))

	// Ping statistics
	api.HandleFunc("/api/ping/stats", get(HandlePingStats(d.Stats)))
	api.HandleFunc("/api/ping/loss", get(HandlePacketLoss(d.Stats)))
	api.HandleFunc("/api/ping/history", get(HandlePingHistory(d.Stats)))
	api.HandleFunc("/api/ping/recent", get(HandleRecentSamples(d.Stats)))

	// Gaps
	api.HandleFunc("/api/gaps/stats", get(HandleGapStats(d.Stats)))
	api.HandleFunc("/api/gaps/history", get(HandleGapHistory(d.Stats)))

	// Speedtests
	api.HandleFunc("/api/speedtest/last", get(HandleLastSpeedtest(d.Stats)))
	api.HandleFunc("/api/speedtest/history", get(HandleSpeedtestHistory(d.Stats)))
	api.HandleFunc("/api/speedtest/stats", get(HandleSpeedtestStats(d.Stats)))
	if d.Speedtest != nil {
		timeout := d.SpeedtestTimeout
		if timeout <= 0 {
			timeout = 3 * time.Minute
		}
		api.Handle("/api/speedtest/run", control(post(HandleSpeedtestRun(d.Speedtest, timeout))))
		api.HandleFunc("/api/speedtest/status", get(HandleSpeedtestStatus(d.Speedtest)))
	} else {
		disabled := func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusServiceUnavailable, "speedtests are disabled")
		}
		api.HandleFunc("/api/speedtest/run", disabled)
		api.HandleFunc("/api/speedtest/status", disabled)
	}

	// Audit trail
	api.HandleFunc("/api/issues", get(HandleIssues(d.Issues)))

	api.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	// Main router
	mux := http.NewServeMux()
	mux.Handle("/api/events", HandleEvents(d.Events)) // hijacked, never gzipped
	mux.Handle("/api/", GzipMiddleware(api))
	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return security.SecureHeaders(mux)
}
