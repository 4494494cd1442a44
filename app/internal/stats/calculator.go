package stats

import (
	"math"
	"sort"

	"netwatch/app/internal/models"
)

// Median returns the standard statistical median: the middle element for an
// odd count, the mean of the two central elements for an even count.
// values is not modified.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// PopulationStdDev divides by the count, not count-1.
func PopulationStdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// ComputePingStats aggregates the latencies of real samples, skipping
// timeout markers.
func ComputePingStats(samples []models.PingSample) PingStats {
	latencies := realLatencies(samples)
	if len(latencies) == 0 {
		return PingStats{NoData: true}
	}

	st := PingStats{
		Count: len(latencies),
		Min:   latencies[0],
		Max:   latencies[0],
	}
	var sum float64
	for _, v := range latencies {
		sum += v
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
	}
	st.Avg = sum / float64(st.Count)
	st.Median = Median(latencies)
	st.Std = PopulationStdDev(latencies, st.Avg)
	return st
}

// ComputePacketLoss compares the observed sequence ranges with the number
// of real replies actually stored. Samples must be in window order. A
// sequence that goes down (icmp_seq wrap or a probe restart) starts a new
// run, and expected is summed over runs.
func ComputePacketLoss(samples []models.PingSample) PacketLoss {
	var pl PacketLoss
	runFirst, prev := 0, 0
	for _, s := range samples {
		if s.IsTimeout || s.Sequence == nil {
			continue
		}
		seq := *s.Sequence
		switch {
		case pl.ActualCount == 0:
			pl.FirstSequence, runFirst = seq, seq
		case seq < prev:
			pl.Expected += prev - runFirst + 1
			runFirst = seq
		}
		prev = seq
		pl.ActualCount++
	}
	if pl.ActualCount == 0 {
		return pl
	}

	pl.LastSequence = prev
	pl.Expected += prev - runFirst + 1
	pl.Lost = pl.Expected - pl.ActualCount
	if pl.Lost < 0 {
		pl.Lost = 0
	}
	if pl.Expected > 0 {
		pl.Percent = float64(pl.Lost) / float64(pl.Expected) * 100
	}
	return pl
}

// ComputeGapStats summarises gap durations.
func ComputeGapStats(gaps []models.GapEvent) GapStats {
	if len(gaps) == 0 {
		return GapStats{}
	}
	st := GapStats{Count: len(gaps), Min: gaps[0].GapSeconds, Max: gaps[0].GapSeconds}
	for _, g := range gaps {
		st.TotalSeconds += g.GapSeconds
		if g.GapSeconds < st.Min {
			st.Min = g.GapSeconds
		}
		if g.GapSeconds > st.Max {
			st.Max = g.GapSeconds
		}
	}
	st.Avg = float64(st.TotalSeconds) / float64(st.Count)
	return st
}

// ComputeSpeedtestStats averages the records that measured a download.
// Optional fields are averaged over the records that carry them.
func ComputeSpeedtestStats(records []models.SpeedtestRecord) SpeedtestStats {
	var st SpeedtestStats
	var down, up, lat, ping mean
	for _, r := range records {
		if !r.Succeeded() {
			continue
		}
		st.Count++
		down.add(r.DownloadMbps)
		up.add(r.UploadMbps)
		lat.add(r.LatencyMs)
		ping.add(r.PingAvgMs)
	}
	st.AvgDownloadMbps = down.value()
	st.AvgUploadMbps = up.value()
	st.AvgLatencyMs = lat.value()
	st.AvgPingMs = ping.value()
	return st
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

func realLatencies(samples []models.PingSample) []float64 {
	out := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.IsTimeout || s.LatencyMs == nil {
			continue
		}
		out = append(out, *s.LatencyMs)
	}
	return out
}
