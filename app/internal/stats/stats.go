package stats

import (
	"errors"
	"fmt"
	"time"

	"netwatch/app/internal/cache"
	"netwatch/app/internal/models"
)

// ErrInvalidGroupBy is returned for gap history groupings other than
// minute or hour.
var ErrInvalidGroupBy = errors.New("groupBy must be minute or hour")

// Store is the read side of the time-series store.
type Store interface {
	PingsSince(since time.Time) ([]models.PingSample, error)
	RecentPings(count int) ([]models.PingSample, error)
	GapsSince(since time.Time) ([]models.GapEvent, error)
	SpeedtestsSince(since time.Time) ([]models.SpeedtestRecord, error)
	LastSuccessfulSpeedtest() (*models.SpeedtestRecord, error)
}

// Engine computes windowed statistics and chart history. It never writes.
type Engine struct {
	store   Store
	history *cache.Cache[[]HistoryPoint]
	gaps    *cache.Cache[[]GapBucket]
	now     func() time.Time
}

// NewEngine creates an engine over store. A positive cacheTTL memoises
// aggregated history for that long.
func NewEngine(store Store, cacheTTL time.Duration) *Engine {
	return &Engine{
		store:   store,
		history: cache.New[[]HistoryPoint](cacheTTL),
		gaps:    cache.New[[]GapBucket](cacheTTL),
		now:     time.Now,
	}
}

// Close releases the history caches.
func (e *Engine) Close() {
	e.history.Stop()
	e.gaps.Stop()
}

func (e *Engine) since(windowMinutes int) time.Time {
	return e.now().Add(-time.Duration(windowMinutes) * time.Minute)
}

// PingStats returns latency statistics over the last windowMinutes.
func (e *Engine) PingStats(windowMinutes int) (PingStats, error) {
	samples, err := e.store.PingsSince(e.since(windowMinutes))
	if err != nil {
		return PingStats{}, fmt.Errorf("load ping samples: %w", err)
	}
	return ComputePingStats(samples), nil
}

// AverageLatency returns the mean real latency over the window; ok is false
// when the window holds no real samples.
func (e *Engine) AverageLatency(window time.Duration) (avg float64, ok bool, err error) {
	samples, err := e.store.PingsSince(e.now().Add(-window))
	if err != nil {
		return 0, false, fmt.Errorf("load ping samples: %w", err)
	}
	st := ComputePingStats(samples)
	if st.NoData {
		return 0, false, nil
	}
	return st.Avg, true, nil
}

// PacketLoss returns sequence-based loss over the last windowMinutes.
func (e *Engine) PacketLoss(windowMinutes int) (PacketLoss, error) {
	samples, err := e.store.PingsSince(e.since(windowMinutes))
	if err != nil {
		return PacketLoss{}, fmt.Errorf("load ping samples: %w", err)
	}
	return ComputePacketLoss(samples), nil
}

// GapStats summarises gap events over the last windowMinutes.
func (e *Engine) GapStats(windowMinutes int) (GapStats, error) {
	gaps, err := e.store.GapsSince(e.since(windowMinutes))
	if err != nil {
		return GapStats{}, fmt.Errorf("load gap events: %w", err)
	}
	return ComputeGapStats(gaps), nil
}

// SpeedtestStats averages successful bandwidth probes over the last windowMinutes.
func (e *Engine) SpeedtestStats(windowMinutes int) (SpeedtestStats, error) {
	records, err := e.store.SpeedtestsSince(e.since(windowMinutes))
	if err != nil {
		return SpeedtestStats{}, fmt.Errorf("load speedtests: %w", err)
	}
	return ComputeSpeedtestStats(records), nil
}

// SpeedtestHistory returns every probe record in the window, oldest first.
func (e *Engine) SpeedtestHistory(windowMinutes int) ([]models.SpeedtestRecord, error) {
	records, err := e.store.SpeedtestsSince(e.since(windowMinutes))
	if err != nil {
		return nil, fmt.Errorf("load speedtests: %w", err)
	}
	if records == nil {
		records = []models.SpeedtestRecord{}
	}
	return records, nil
}

// PingHistory returns chart points for the window. intervalSeconds <= 1
// yields raw samples; larger intervals yield epoch-aligned buckets.
func (e *Engine) PingHistory(windowMinutes, intervalSeconds int) ([]HistoryPoint, error) {
	realtime := intervalSeconds <= 1
	key := fmt.Sprintf("%d:%d", windowMinutes, intervalSeconds)
	if !realtime {
		if cached, ok := e.history.Get(key); ok {
			return cached, nil
		}
	}

	samples, err := e.store.PingsSince(e.since(windowMinutes))
	if err != nil {
		return nil, fmt.Errorf("load ping samples: %w", err)
	}
	if realtime {
		return RealtimeHistory(samples), nil
	}

	points := AggregateHistory(samples, intervalSeconds)
	e.history.Set(key, points)
	return points, nil
}

// GapHistory returns per-minute or per-hour gap buckets for the window.
func (e *Engine) GapHistory(windowMinutes int, groupBy GroupBy) ([]GapBucket, error) {
	if _, ok := groupBy.seconds(); !ok {
		return nil, ErrInvalidGroupBy
	}
	key := fmt.Sprintf("%d:%s", windowMinutes, groupBy)
	if cached, ok := e.gaps.Get(key); ok {
		return cached, nil
	}

	gaps, err := e.store.GapsSince(e.since(windowMinutes))
	if err != nil {
		return nil, fmt.Errorf("load gap events: %w", err)
	}
	buckets, err := AggregateGaps(gaps, groupBy)
	if err != nil {
		return nil, err
	}
	e.gaps.Set(key, buckets)
	return buckets, nil
}

// RecentSamples returns the last count samples of any kind, oldest first.
func (e *Engine) RecentSamples(count int) ([]models.PingSample, error) {
	samples, err := e.store.RecentPings(count)
	if err != nil {
		return nil, fmt.Errorf("load recent samples: %w", err)
	}
	if samples == nil {
		samples = []models.PingSample{}
	}
	return samples, nil
}

// LastSpeedtest returns the newest successful probe, or nil.
func (e *Engine) LastSpeedtest() (*models.SpeedtestRecord, error) {
	rec, err := e.store.LastSuccessfulSpeedtest()
	if err != nil {
		return nil, fmt.Errorf("load last speedtest: %w", err)
	}
	return rec, nil
}
