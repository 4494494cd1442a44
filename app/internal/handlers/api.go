package handlers

import (
	"errors"
	"net/http"
	"time"

	"netwatch/app/internal/models"
	"netwatch/app/internal/stats"
)

// Window bounds for statistics queries, in minutes.
const (
	defaultWindowMinutes = 60
	maxWindowMinutes     = 30 * 24 * 60
)

// StatsQuerier is the read-only statistics surface.
type StatsQuerier interface {
	PingStats(windowMinutes int) (stats.PingStats, error)
	PacketLoss(windowMinutes int) (stats.PacketLoss, error)
	GapStats(windowMinutes int) (stats.GapStats, error)
	SpeedtestStats(windowMinutes int) (stats.SpeedtestStats, error)
	SpeedtestHistory(windowMinutes int) ([]models.SpeedtestRecord, error)
	PingHistory(windowMinutes, intervalSeconds int) ([]stats.HistoryPoint, error)
	GapHistory(windowMinutes int, groupBy stats.GroupBy) ([]stats.GapBucket, error)
	RecentSamples(count int) ([]models.PingSample, error)
	LastSpeedtest() (*models.SpeedtestRecord, error)
}

func window(r *http.Request) int {
	return queryInt(r, "window", defaultWindowMinutes, 1, maxWindowMinutes)
}

// HandlePingStats returns latency statistics for the window
func HandlePingStats(q StatsQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		win := window(r)
		st, err := q.PingStats(win)
		if err != nil {
			serverError(w, "ping stats", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"window_minutes": win, "stats": st})
	}
}

// HandlePacketLoss returns sequence-based packet loss for the window
func HandlePacketLoss(q StatsQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		win := window(r)
		loss, err := q.PacketLoss(win)
		if err != nil {
			serverError(w, "packet loss", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"window_minutes": win, "loss": loss})
	}
}

// HandlePingHistory returns chart points; interval <= 1 gives raw samples
func HandlePingHistory(q StatsQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		win := window(r)
		interval := queryInt(r, "interval", 1, 1, 24*3600)
		points, err := q.PingHistory(win, interval)
		if err != nil {
			serverError(w, "ping history", err)
			return
		}
		if points == nil {
			points = []stats.HistoryPoint{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"window_minutes":   win,
			"interval_seconds": interval,
			"realtime":         interval <= 1,
			"points":           points,
		})
	}
}

// HandleRecentSamples returns the newest samples, oldest first
func HandleRecentSamples(q StatsQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count := queryInt(r, "count", 60, 1, 3600)
		samples, err := q.RecentSamples(count)
		if err != nil {
			serverError(w, "recent samples", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": len(samples), "samples": samples})
	}
}

// HandleGapStats returns gap event statistics for the window
func HandleGapStats(q StatsQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		win := window(r)
		st, err := q.GapStats(win)
		if err != nil {
			serverError(w, "gap stats", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"window_minutes": win, "stats": st})
	}
}

// HandleGapHistory returns gap buckets grouped by minute or hour
func HandleGapHistory(q StatsQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		win := queryInt(r, "window", 24*60, 1, maxWindowMinutes)
		groupBy := stats.GroupBy(r.URL.Query().Get("groupBy"))
		if groupBy == "" {
			groupBy = stats.GroupByMinute
		}
		buckets, err := q.GapHistory(win, groupBy)
		if errors.Is(err, stats.ErrInvalidGroupBy) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			serverError(w, "gap history", err)
			return
		}
		if buckets == nil {
			buckets = []stats.GapBucket{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"window_minutes": win,
			"group_by":       groupBy,
			"buckets":        buckets,
		})
	}
}

// HandleSpeedtestStats averages successful speedtests in the window
func HandleSpeedtestStats(q StatsQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		win := queryInt(r, "window", 24*60, 1, maxWindowMinutes)
		st, err := q.SpeedtestStats(win)
		if err != nil {
			serverError(w, "speedtest stats", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"window_minutes": win, "stats": st})
	}
}

// HandleSpeedtestHistory lists every speedtest attempt in the window
func HandleSpeedtestHistory(q StatsQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		win := queryInt(r, "window", 24*60, 1, maxWindowMinutes)
		records, err := q.SpeedtestHistory(win)
		if err != nil {
			serverError(w, "speedtest history", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"window_minutes": win, "records": records})
	}
}

// HandleLastSpeedtest returns the newest successful speedtest or null
func HandleLastSpeedtest(q StatsQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := q.LastSpeedtest()
		if err != nil {
			serverError(w, "last speedtest", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"result": rec})
	}
}

// IssueReader is the audit-trail query surface.
type IssueReader interface {
	Issues(limit int, kind models.IssueKind, offset int) ([]models.IssueLogEntry, error)
	IssueCounts(since time.Time) (map[models.IssueKind]int, error)
}

// HandleIssues returns the issue log, newest first
func HandleIssues(store IssueReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 100, 1, 1000)
		offset := queryInt(r, "offset", 0, 0, 1<<30)
		kind := models.IssueKind(r.URL.Query().Get("kind"))
		if kind != "" && !kind.Valid() {
			writeError(w, http.StatusBadRequest, "unknown issue kind")
			return
		}

		entries, err := store.Issues(limit, kind, offset)
		if err != nil {
			serverError(w, "issues", err)
			return
		}
		if entries == nil {
			entries = []models.IssueLogEntry{}
		}

		win := queryInt(r, "window", 24*60, 1, maxWindowMinutes)
		since := time.Now().UTC().Add(-time.Duration(win) * time.Minute)
		counts, err := store.IssueCounts(since)
		if err != nil {
			serverError(w, "issue counts", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"issues":         entries,
			"counts":         counts,
			"window_minutes": win,
			"limit":          limit,
			"offset":         offset,
		})
	}
}
