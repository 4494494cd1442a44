package models

import "time"

// PingSample is a single reachability probe result. Timeout markers carry no
// latency, sequence or TTL.
type PingSample struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	LatencyMs *float64  `json:"latency_ms"`
	Sequence  *int      `json:"sequence"`
	TTL       *int      `json:"ttl"`
	IsTimeout bool      `json:"is_timeout"`
}

// NewTimeoutSample builds the synthetic marker inserted on probe silence.
func NewTimeoutSample(ts time.Time) PingSample {
	return PingSample{Timestamp: ts, IsTimeout: true}
}

// NewReplySample builds a sample from a parsed probe reply.
func NewReplySample(ts time.Time, latencyMs float64, sequence, ttl int) PingSample {
	return PingSample{
		Timestamp: ts,
		LatencyMs: &latencyMs,
		Sequence:  &sequence,
		TTL:       &ttl,
	}
}

// GapEvent records a wall-clock delay between two real replies that exceeded
// the timeout threshold.
type GapEvent struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	GapSeconds int       `json:"gap_seconds"`
	SeqFrom    int       `json:"seq_from"`
	SeqTo      int       `json:"seq_to"`
}

// SpeedtestRecord is written once per bandwidth probe attempt. Failed attempts
// leave the measurement fields nil.
type SpeedtestRecord struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Server       *string   `json:"server"`
	LatencyMs    *float64  `json:"latency_ms"`
	DownloadMbps *float64  `json:"download_mbps"`
	UploadMbps   *float64  `json:"upload_mbps"`
	PingAvgMs    *float64  `json:"ping_avg_ms"`
}

// Succeeded reports whether the record holds a measured download value.
func (r SpeedtestRecord) Succeeded() bool {
	return r.DownloadMbps != nil
}

// IssueKind classifies an issue log entry
type IssueKind string

const (
	IssueTimeout             IssueKind = "timeout"
	IssuePacketLoss          IssueKind = "packet_loss"
	IssueProbeError          IssueKind = "probe_error"
	IssueSpeedtestFailure    IssueKind = "speedtest_failure"
	IssueSpeedtestParseError IssueKind = "speedtest_parse_error"
)

// Valid reports whether k is one of the known issue kinds.
func (k IssueKind) Valid() bool {
	switch k {
	case IssueTimeout, IssuePacketLoss, IssueProbeError, IssueSpeedtestFailure, IssueSpeedtestParseError:
		return true
	}
	return false
}

// IssueLogEntry is an append-only diagnostic record.
type IssueLogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      IssueKind `json:"kind"`
	Message   string    `json:"message"`
}

// RecordKind identifies one of the stored record families.
type RecordKind int

const (
	KindPingSample RecordKind = iota
	KindGapEvent
	KindSpeedtest
	KindIssue
)

func (k RecordKind) String() string {
	switch k {
	case KindPingSample:
		return "ping_sample"
	case KindGapEvent:
		return "gap_event"
	case KindSpeedtest:
		return "speedtest"
	case KindIssue:
		return "issue"
	}
	return "unknown"
}

// MonitoringStatus describes the ping supervisor state.
type MonitoringStatus struct {
	Running     bool       `json:"running"`
	Target      string     `json:"target"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	LastReplyAt *time.Time `json:"last_reply_at,omitempty"`
}
