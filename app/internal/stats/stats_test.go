package stats

import (
	"math"
	"testing"
	"time"

	"netwatch/app/internal/database"
	"netwatch/app/internal/models"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func initTestEngine(t *testing.T) (*Engine, *database.Store) {
	t.Helper()
	store, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	e := NewEngine(store, 0)
	e.now = func() time.Time { return now }
	return e, store
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func replies(start time.Time, latencies ...float64) []models.PingSample {
	out := make([]models.PingSample, len(latencies))
	for i, l := range latencies {
		out[i] = models.NewReplySample(start.Add(time.Duration(i)*time.Second), l, i+1, 64)
	}
	return out
}

// --------------- Median / StdDev ---------------

func TestMedian_Odd(t *testing.T) {
	if got := Median([]float64{10, 12, 11, 13, 12}); got != 12 {
		t.Errorf("median = %v, want 12", got)
	}
}

func TestMedian_EvenAveragesCentralPair(t *testing.T) {
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("median = %v, want 2.5", got)
	}
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	in := []float64{3, 1, 2}
	Median(in)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Errorf("input mutated: %v", in)
	}
}

func TestMedian_Empty(t *testing.T) {
	if got := Median(nil); got != 0 {
		t.Errorf("median of empty = %v", got)
	}
}

func TestPopulationStdDev(t *testing.T) {
	vals := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if got := PopulationStdDev(vals, 5); got != 2 {
		t.Errorf("std = %v, want 2", got)
	}
}

// --------------- Ping stats ---------------

func TestComputePingStats_Example(t *testing.T) {
	st := ComputePingStats(replies(now, 10, 12, 11, 13, 12))
	if st.NoData {
		t.Fatal("unexpected NoData")
	}
	if st.Count != 5 {
		t.Errorf("count = %d", st.Count)
	}
	if !approx(st.Avg, 11.6) {
		t.Errorf("avg = %v, want 11.6", st.Avg)
	}
	if st.Median != 12 {
		t.Errorf("median = %v, want 12", st.Median)
	}
	if st.Min != 10 || st.Max != 13 {
		t.Errorf("min/max = %v/%v", st.Min, st.Max)
	}
	// population variance: (2.56+0.16+0.36+1.96+0.16)/5 = 1.04
	if !approx(st.Std, math.Sqrt(1.04)) {
		t.Errorf("std = %v, want %v", st.Std, math.Sqrt(1.04))
	}
}

func TestComputePingStats_IgnoresTimeouts(t *testing.T) {
	samples := append(replies(now, 20, 30), models.NewTimeoutSample(now.Add(5*time.Second)))
	st := ComputePingStats(samples)
	if st.Count != 2 || st.Avg != 25 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestComputePingStats_NoData(t *testing.T) {
	st := ComputePingStats([]models.PingSample{models.NewTimeoutSample(now)})
	if !st.NoData || st.Count != 0 {
		t.Errorf("expected NoData, got %+v", st)
	}
}

// --------------- Packet loss ---------------

func TestComputePacketLoss_MissingSequences(t *testing.T) {
	samples := []models.PingSample{
		models.NewReplySample(now, 10, 1, 64),
		models.NewReplySample(now.Add(time.Second), 10, 2, 64),
		models.NewTimeoutSample(now.Add(2 * time.Second)),
		models.NewReplySample(now.Add(5*time.Second), 10, 5, 64),
	}
	pl := ComputePacketLoss(samples)
	if pl.FirstSequence != 1 || pl.LastSequence != 5 {
		t.Errorf("range = %d..%d", pl.FirstSequence, pl.LastSequence)
	}
	if pl.Expected != 5 || pl.Lost != 2 || pl.ActualCount != 3 {
		t.Errorf("unexpected loss: %+v", pl)
	}
	if !approx(pl.Percent, 40.0) {
		t.Errorf("percent = %v, want 40", pl.Percent)
	}
}

func TestComputePacketLoss_Empty(t *testing.T) {
	pl := ComputePacketLoss(nil)
	if pl.Expected != 0 || pl.Percent != 0 {
		t.Errorf("expected zero value, got %+v", pl)
	}
}

func TestComputePacketLoss_DuplicatesClampToZero(t *testing.T) {
	samples := []models.PingSample{
		models.NewReplySample(now, 10, 1, 64),
		models.NewReplySample(now, 10, 1, 64),
		models.NewReplySample(now, 10, 2, 64),
	}
	pl := ComputePacketLoss(samples)
	if pl.Lost != 0 || pl.Percent != 0 {
		t.Errorf("lost should clamp to 0: %+v", pl)
	}
}

func seqRun(start time.Time, from, to int) []models.PingSample {
	out := make([]models.PingSample, 0, to-from+1)
	for seq := from; seq <= to; seq++ {
		out = append(out, models.NewReplySample(start.Add(time.Duration(len(out))*time.Second), 10, seq, 64))
	}
	return out
}

func TestComputePacketLoss_SequenceWrap(t *testing.T) {
	samples := append(seqRun(now, 63736, 65535), seqRun(now.Add(1800*time.Second), 0, 1799)...)
	pl := ComputePacketLoss(samples)
	if pl.ActualCount != 3600 || pl.Expected != 3600 || pl.Lost != 0 || pl.Percent != 0 {
		t.Errorf("wrap should not count as loss: %+v", pl)
	}
	if pl.FirstSequence != 63736 || pl.LastSequence != 1799 {
		t.Errorf("range = %d..%d, want 63736..1799", pl.FirstSequence, pl.LastSequence)
	}
}

func TestComputePacketLoss_Restart(t *testing.T) {
	samples := append(seqRun(now, 1501, 3000), seqRun(now.Add(time.Hour), 1, 1000)...)
	pl := ComputePacketLoss(samples)
	if pl.Expected != 2500 || pl.Lost != 0 {
		t.Errorf("restart should not count as loss: %+v", pl)
	}
}

func TestComputePacketLoss_LossInsideSecondRun(t *testing.T) {
	samples := append(seqRun(now, 1, 10), seqRun(now.Add(time.Minute), 1, 3)...)
	samples = append(samples, models.NewReplySample(now.Add(2*time.Minute), 10, 6, 64))
	pl := ComputePacketLoss(samples)
	if pl.Expected != 16 || pl.Lost != 2 || pl.ActualCount != 14 {
		t.Errorf("unexpected loss: %+v", pl)
	}
}

// --------------- Gap / speedtest stats ---------------

func TestComputeGapStats(t *testing.T) {
	st := ComputeGapStats([]models.GapEvent{
		{Timestamp: now, GapSeconds: 3},
		{Timestamp: now, GapSeconds: 9},
		{Timestamp: now, GapSeconds: 6},
	})
	if st.Count != 3 || st.TotalSeconds != 18 || st.Avg != 6 || st.Min != 3 || st.Max != 9 {
		t.Errorf("unexpected gap stats: %+v", st)
	}
	if zero := ComputeGapStats(nil); zero != (GapStats{}) {
		t.Errorf("expected zero stats, got %+v", zero)
	}
}

func TestComputeSpeedtestStats_SkipsFailures(t *testing.T) {
	d1, d2, u1, l1 := 100.0, 50.0, 20.0, 10.0
	st := ComputeSpeedtestStats([]models.SpeedtestRecord{
		{DownloadMbps: &d1, UploadMbps: &u1, LatencyMs: &l1},
		{DownloadMbps: &d2},
		{},
	})
	if st.Count != 2 {
		t.Errorf("count = %d, want 2", st.Count)
	}
	if st.AvgDownloadMbps != 75 || st.AvgUploadMbps != 20 || st.AvgLatencyMs != 10 {
		t.Errorf("unexpected averages: %+v", st)
	}
}

// --------------- History ---------------

func TestRealtimeHistory_CapsAndMarksTimeouts(t *testing.T) {
	var samples []models.PingSample
	for i := 0; i < 150; i++ {
		samples = append(samples, models.NewReplySample(now.Add(time.Duration(i)*time.Second), float64(i), i+1, 64))
	}
	samples = append(samples, models.NewTimeoutSample(now.Add(200*time.Second)))

	pts := RealtimeHistory(samples)
	if len(pts) != MaxHistoryPoints {
		t.Fatalf("expected %d points, got %d", MaxHistoryPoints, len(pts))
	}
	last := pts[len(pts)-1]
	if !last.Timeout || last.Avg != 0 || last.Min != 0 || last.Max != 0 {
		t.Errorf("timeout point should be zero-valued: %+v", last)
	}
	prev := pts[len(pts)-2]
	if prev.Avg != 149 || prev.Min != 149 || prev.Max != 149 {
		t.Errorf("raw point should mirror latency: %+v", prev)
	}
	for i := 1; i < len(pts); i++ {
		if pts[i].Time.Before(pts[i-1].Time) {
			t.Fatal("points not chronological")
		}
	}
}

func TestAggregateHistory_Buckets(t *testing.T) {
	start := time.Unix(1_700_000_000, 0).UTC() // 1700000000 % 60 == 20
	samples := []models.PingSample{
		models.NewReplySample(start, 10, 1, 64),
		models.NewReplySample(start.Add(10*time.Second), 20, 2, 64),
		models.NewTimeoutSample(start.Add(20 * time.Second)),
		models.NewReplySample(start.Add(45*time.Second), 30, 3, 64),
		models.NewTimeoutSample(start.Add(100 * time.Second)),
	}
	pts := AggregateHistory(samples, 60)
	if len(pts) != 3 {
		t.Fatalf("expected 3 buckets, got %d: %+v", len(pts), pts)
	}
	first := pts[0]
	if first.Time.Unix() != 1_699_999_980 {
		t.Errorf("first bucket start = %d", first.Time.Unix())
	}
	if first.Avg != 15 || first.Min != 10 || first.Max != 20 || first.Count != 2 || first.Timeouts != 1 {
		t.Errorf("unexpected first bucket: %+v", first)
	}
	last := pts[2]
	if last.Count != 0 || last.Timeouts != 1 || last.Avg != 0 || !last.Timeout {
		t.Errorf("timeout-only bucket should report zeros: %+v", last)
	}
}

func TestAggregateHistory_CapAlignmentOrder(t *testing.T) {
	// one sample every 30s for 24h
	start := now.Add(-24 * time.Hour)
	var samples []models.PingSample
	for i := 0; i < 24*120; i++ {
		samples = append(samples, models.NewReplySample(start.Add(time.Duration(i)*30*time.Second), 5, i+1, 64))
	}
	pts := AggregateHistory(samples, 60)
	if len(pts) > MaxHistoryPoints {
		t.Fatalf("got %d buckets, cap is %d", len(pts), MaxHistoryPoints)
	}
	for i, p := range pts {
		if p.Time.Unix()%60 != 0 {
			t.Fatalf("bucket %d not aligned: %v", i, p.Time)
		}
		if i > 0 && !p.Time.After(pts[i-1].Time) {
			t.Fatalf("buckets not ascending at %d", i)
		}
	}
}

func TestAggregateGaps(t *testing.T) {
	hour := time.Unix(1_700_000_000/3600*3600, 0).UTC()
	gaps := []models.GapEvent{
		{Timestamp: hour.Add(5 * time.Second), GapSeconds: 3},
		{Timestamp: hour.Add(50 * time.Second), GapSeconds: 4},
		{Timestamp: hour.Add(2 * time.Minute), GapSeconds: 10},
	}

	byMinute, err := AggregateGaps(gaps, GroupByMinute)
	if err != nil {
		t.Fatal(err)
	}
	if len(byMinute) != 2 || byMinute[0].Count != 2 || byMinute[0].TotalSeconds != 7 {
		t.Errorf("unexpected minute buckets: %+v", byMinute)
	}

	byHour, _ := AggregateGaps(gaps, GroupByHour)
	if len(byHour) != 1 || byHour[0].Count != 3 || byHour[0].TotalSeconds != 17 || !byHour[0].Time.Equal(hour) {
		t.Errorf("unexpected hour buckets: %+v", byHour)
	}

	if _, err := AggregateGaps(gaps, "day"); err != ErrInvalidGroupBy {
		t.Errorf("expected ErrInvalidGroupBy, got %v", err)
	}
}

func TestAggregateGaps_Cap(t *testing.T) {
	var gaps []models.GapEvent
	for i := 0; i < 90; i++ {
		gaps = append(gaps, models.GapEvent{Timestamp: now.Add(time.Duration(i) * time.Minute), GapSeconds: 3})
	}
	buckets, _ := AggregateGaps(gaps, GroupByMinute)
	if len(buckets) != MaxGapBuckets {
		t.Fatalf("expected %d buckets, got %d", MaxGapBuckets, len(buckets))
	}
	if !buckets[len(buckets)-1].Time.Equal(now.Add(89 * time.Minute)) {
		t.Errorf("newest bucket missing: %v", buckets[len(buckets)-1].Time)
	}
}

// --------------- Engine over the store ---------------

func TestEngine_PingStatsWindow(t *testing.T) {
	e, store := initTestEngine(t)
	store.InsertPing(models.NewReplySample(now.Add(-2*time.Hour), 999, 1, 64))
	for _, p := range replies(now.Add(-time.Minute), 10, 12, 11, 13, 12) {
		store.InsertPing(p)
	}

	st, err := e.PingStats(5)
	if err != nil {
		t.Fatal(err)
	}
	if st.Count != 5 || st.Max != 13 {
		t.Errorf("old sample leaked into window: %+v", st)
	}

	avg, ok, err := e.AverageLatency(5 * time.Minute)
	if err != nil || !ok || !approx(avg, 11.6) {
		t.Errorf("AverageLatency = %v, %v, %v", avg, ok, err)
	}
}

func TestEngine_AverageLatencyAbsent(t *testing.T) {
	e, store := initTestEngine(t)
	store.InsertPing(models.NewTimeoutSample(now))
	_, ok, err := e.AverageLatency(5 * time.Minute)
	if err != nil || ok {
		t.Errorf("expected absent average, got ok=%v err=%v", ok, err)
	}
}

func TestEngine_PacketLossAndGaps(t *testing.T) {
	e, store := initTestEngine(t)
	for _, seq := range []int{1, 2, 5} {
		store.InsertPing(models.NewReplySample(now.Add(-time.Duration(10-seq)*time.Second), 10, seq, 64))
	}
	store.InsertGap(models.GapEvent{Timestamp: now.Add(-time.Second), GapSeconds: 3, SeqFrom: 2, SeqTo: 5})

	pl, err := e.PacketLoss(60)
	if err != nil {
		t.Fatal(err)
	}
	if pl.Expected != 5 || pl.Lost != 2 || !approx(pl.Percent, 40) {
		t.Errorf("unexpected loss: %+v", pl)
	}

	gs, err := e.GapStats(60)
	if err != nil {
		t.Fatal(err)
	}
	if gs.Count != 1 || gs.TotalSeconds != 3 {
		t.Errorf("unexpected gap stats: %+v", gs)
	}
}

func TestEngine_PingHistoryModes(t *testing.T) {
	e, store := initTestEngine(t)
	for i := 0; i < 10; i++ {
		store.InsertPing(models.NewReplySample(now.Add(-time.Duration(10-i)*time.Second), float64(i), i+1, 64))
	}

	raw, err := e.PingHistory(5, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 10 {
		t.Errorf("realtime mode should return one point per sample, got %d", len(raw))
	}

	agg, err := e.PingHistory(5, 300)
	if err != nil {
		t.Fatal(err)
	}
	if len(agg) == 0 || len(agg) > 2 {
		t.Errorf("expected 1-2 aggregated buckets, got %d", len(agg))
	}
}

func TestEngine_GapHistoryInvalidGroupBy(t *testing.T) {
	e, _ := initTestEngine(t)
	if _, err := e.GapHistory(60, "week"); err != ErrInvalidGroupBy {
		t.Errorf("expected ErrInvalidGroupBy, got %v", err)
	}
}

func TestEngine_CachesAggregatedHistory(t *testing.T) {
	store, err := database.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	e := NewEngine(store, time.Minute)
	defer e.Close()
	e.now = func() time.Time { return now }

	store.InsertPing(models.NewReplySample(now.Add(-time.Second), 10, 1, 64))
	first, _ := e.PingHistory(5, 60)

	store.InsertPing(models.NewReplySample(now.Add(-time.Second), 90, 2, 64))
	second, _ := e.PingHistory(5, 60)
	if len(first) != 1 || second[0].Avg != first[0].Avg {
		t.Errorf("aggregated history should be served from cache: %+v vs %+v", first, second)
	}

	raw, _ := e.PingHistory(5, 1)
	if len(raw) != 2 {
		t.Errorf("realtime history must bypass the cache, got %d points", len(raw))
	}
}

func TestEngine_RecentAndLastSpeedtest(t *testing.T) {
	e, store := initTestEngine(t)
	for _, p := range replies(now.Add(-time.Minute), 1, 2, 3) {
		store.InsertPing(p)
	}
	recent, err := e.RecentSamples(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || *recent[0].LatencyMs != 2 {
		t.Errorf("unexpected recent samples: %+v", recent)
	}

	last, err := e.LastSpeedtest()
	if err != nil || last != nil {
		t.Errorf("expected no speedtest, got %v, %v", last, err)
	}

	down := 80.0
	store.InsertSpeedtest(models.SpeedtestRecord{Timestamp: now.Add(-time.Minute), DownloadMbps: &down})
	store.InsertSpeedtest(models.SpeedtestRecord{Timestamp: now})
	last, _ = e.LastSpeedtest()
	if last == nil || *last.DownloadMbps != 80 {
		t.Errorf("unexpected last speedtest: %+v", last)
	}

	hist, _ := e.SpeedtestHistory(60)
	if len(hist) != 2 {
		t.Errorf("history should include failed attempts, got %d", len(hist))
	}
	st, _ := e.SpeedtestStats(60)
	if st.Count != 1 || st.AvgDownloadMbps != 80 {
		t.Errorf("unexpected speedtest stats: %+v", st)
	}
}
