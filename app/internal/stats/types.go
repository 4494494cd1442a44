package stats

import "time"

// PingStats summarises non-timeout latency samples in a window.
// NoData is set when the window holds no real samples.
type PingStats struct {
	Count  int     `json:"count"`
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	NoData bool    `json:"no_data"`
}

// PacketLoss is derived from the sequence numbers observed in a window.
type PacketLoss struct {
	FirstSequence int     `json:"first_sequence"`
	LastSequence  int     `json:"last_sequence"`
	ActualCount   int     `json:"actual_count"`
	Expected      int     `json:"expected"`
	Lost          int     `json:"lost"`
	Percent       float64 `json:"percent"`
}

// GapStats summarises gap events in a window
type GapStats struct {
	Count        int     `json:"count"`
	TotalSeconds int     `json:"total_seconds"`
	Avg          float64 `json:"avg"`
	Min          int     `json:"min"`
	Max          int     `json:"max"`
}

// SpeedtestStats averages successful bandwidth probes in a window.
type SpeedtestStats struct {
	Count           int     `json:"count"`
	AvgDownloadMbps float64 `json:"avg_download_mbps"`
	AvgUploadMbps   float64 `json:"avg_upload_mbps"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
	AvgPingMs       float64 `json:"avg_ping_ms"`
}

// HistoryPoint is one chart point. In realtime mode it mirrors a single
// sample; in aggregated mode it covers one bucket starting at Time.
type HistoryPoint struct {
	Time     time.Time `json:"time"`
	Avg      float64   `json:"avg"`
	Min      float64   `json:"min"`
	Max      float64   `json:"max"`
	Count    int       `json:"count"`
	Timeouts int       `json:"timeouts"`
	Timeout  bool      `json:"timeout"`
}

// GapBucket is one bucket of gap history
type GapBucket struct {
	Time         time.Time `json:"time"`
	Count        int       `json:"count"`
	TotalSeconds int       `json:"total_seconds"`
}

// GroupBy selects the gap history bucket width.
type GroupBy string

const (
	GroupByMinute GroupBy = "minute"
	GroupByHour   GroupBy = "hour"
)

func (g GroupBy) seconds() (int64, bool) {
	switch g {
	case GroupByMinute:
		return 60, true
	case GroupByHour:
		return 3600, true
	}
	return 0, false
}
