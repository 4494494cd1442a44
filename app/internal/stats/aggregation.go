package stats

import (
	"sort"
	"time"

	"netwatch/app/internal/models"
)

const (
	// MaxHistoryPoints caps ping history in both realtime and aggregated mode.
	MaxHistoryPoints = 120
	// MaxGapBuckets caps gap history.
	MaxGapBuckets = 60
)

// alignBucket rounds ts down to a multiple of width seconds since the epoch.
func alignBucket(ts time.Time, width int64) int64 {
	sec := ts.Unix()
	b := sec / width * width
	if sec < 0 && sec%width != 0 {
		b -= width
	}
	return b
}

// RealtimeHistory returns the newest MaxHistoryPoints samples, one point per
// sample, oldest first. Timeout markers become zero points with Timeout set.
func RealtimeHistory(samples []models.PingSample) []HistoryPoint {
	if len(samples) > MaxHistoryPoints {
		samples = samples[len(samples)-MaxHistoryPoints:]
	}
	out := make([]HistoryPoint, 0, len(samples))
	for _, s := range samples {
		p := HistoryPoint{Time: s.Timestamp}
		if s.IsTimeout || s.LatencyMs == nil {
			p.Timeout = true
			p.Timeouts = 1
		} else {
			v := *s.LatencyMs
			p.Avg, p.Min, p.Max = v, v, v
			p.Count = 1
		}
		out = append(out, p)
	}
	return out
}

type pingBucket struct {
	sum      float64
	min, max float64
	count    int
	timeouts int
}

// AggregateHistory buckets samples into epoch-aligned intervals of
// intervalSeconds and returns the newest MaxHistoryPoints buckets, oldest
// first. Buckets holding only timeout markers report zero latency.
func AggregateHistory(samples []models.PingSample, intervalSeconds int) []HistoryPoint {
	width := int64(intervalSeconds)
	buckets := make(map[int64]*pingBucket)
	for _, s := range samples {
		key := alignBucket(s.Timestamp, width)
		b, ok := buckets[key]
		if !ok {
			b = &pingBucket{}
			buckets[key] = b
		}
		if s.IsTimeout || s.LatencyMs == nil {
			b.timeouts++
			continue
		}
		v := *s.LatencyMs
		if b.count == 0 || v < b.min {
			b.min = v
		}
		if b.count == 0 || v > b.max {
			b.max = v
		}
		b.sum += v
		b.count++
	}

	keys := newestKeys(buckets, MaxHistoryPoints)
	out := make([]HistoryPoint, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		p := HistoryPoint{
			Time:     time.Unix(k, 0).UTC(),
			Count:    b.count,
			Timeouts: b.timeouts,
		}
		if b.count > 0 {
			p.Avg = b.sum / float64(b.count)
			p.Min = b.min
			p.Max = b.max
		} else {
			p.Timeout = true
		}
		out = append(out, p)
	}
	return out
}

// AggregateGaps buckets gap events by minute or hour and returns the newest
// MaxGapBuckets buckets, oldest first.
func AggregateGaps(gaps []models.GapEvent, groupBy GroupBy) ([]GapBucket, error) {
	width, ok := groupBy.seconds()
	if !ok {
		return nil, ErrInvalidGroupBy
	}

	buckets := make(map[int64]*GapBucket)
	for _, g := range gaps {
		key := alignBucket(g.Timestamp, width)
		b, ok := buckets[key]
		if !ok {
			b = &GapBucket{Time: time.Unix(key, 0).UTC()}
			buckets[key] = b
		}
		b.Count++
		b.TotalSeconds += g.GapSeconds
	}

	keys := newestKeys(buckets, MaxGapBuckets)
	out := make([]GapBucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, *buckets[k])
	}
	return out, nil
}

// newestKeys returns at most limit of the largest keys in ascending order.
func newestKeys[V any](m map[int64]V, limit int) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	if len(keys) > limit {
		keys = keys[len(keys)-limit:]
	}
	return keys
}
