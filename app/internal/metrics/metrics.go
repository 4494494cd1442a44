package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"netwatch/app/internal/events"
	"netwatch/app/internal/models"
)

const namespace = "netwatch"

// Recorder turns monitor events into Prometheus metrics.
type Recorder struct {
	samples     prometheus.Counter
	timeouts    prometheus.Counter
	gaps        prometheus.Counter
	gapSeconds  prometheus.Histogram
	lost        prometheus.Counter
	latency     prometheus.Histogram
	lastLatency prometheus.Gauge
	speedtests  *prometheus.CounterVec
	download    prometheus.Gauge
	upload      prometheus.Gauge
	monitoring  prometheus.Gauge
	dropped     prometheus.CounterFunc
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ping_samples_total",
			Help: "Real ping replies recorded.",
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ping_timeouts_total",
			Help: "Synthetic timeout markers inserted by the watchdog.",
		}),
		gaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "gap_events_total",
			Help: "Reply gaps exceeding the timeout threshold.",
		}),
		gapSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "gap_seconds",
			Help:    "Duration of detected reply gaps.",
			Buckets: []float64{3, 5, 10, 30, 60, 300, 900},
		}),
		lost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ping_lost_packets_total",
			Help: "Sequence numbers skipped between consecutive replies.",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "ping_latency_ms",
			Help:    "Ping round-trip latency in milliseconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		lastLatency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "ping_last_latency_ms",
			Help: "Latency of the most recent reply.",
		}),
		speedtests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "speedtest_runs_total",
			Help: "Completed bandwidth probes by outcome.",
		}, []string{"outcome"}),
		download: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "speedtest_download_mbps",
			Help: "Download throughput of the last successful speedtest.",
		}),
		upload: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "speedtest_upload_mbps",
			Help: "Upload throughput of the last successful speedtest.",
		}),
		monitoring: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "monitoring_running",
			Help: "1 while the ping probe is running.",
		}),
	}

	collectors := []prometheus.Collector{
		r.samples, r.timeouts, r.gaps, r.gapSeconds, r.lost, r.latency,
		r.lastLatency, r.speedtests, r.download, r.upload, r.monitoring,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// TrackDrops exposes the broker's dropped-event count.
func (r *Recorder) TrackDrops(reg prometheus.Registerer, dropped func() uint64) error {
	r.dropped = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace, Name: "events_dropped_total",
		Help: "Events not delivered to slow stream subscribers.",
	}, func() float64 { return float64(dropped()) })
	return reg.Register(r.dropped)
}

// Observe updates metrics from one event. It is meant to be installed as a
// broker hook.
func (r *Recorder) Observe(e events.Event) {
	switch e.Type {
	case events.TypeSample:
		s, ok := e.Data.(models.PingSample)
		if !ok {
			return
		}
		r.samples.Inc()
		if s.LatencyMs != nil {
			r.latency.Observe(*s.LatencyMs)
			r.lastLatency.Set(*s.LatencyMs)
		}

	case events.TypeTimeout:
		r.timeouts.Inc()

	case events.TypeGapDetected:
		r.gaps.Inc()
		if g, ok := e.Data.(models.GapEvent); ok {
			r.gapSeconds.Observe(float64(g.GapSeconds))
		}

	case events.TypePacketLoss:
		if d, ok := e.Data.(events.PacketLossData); ok {
			r.lost.Add(float64(d.Lost))
		}

	case events.TypeSpeedtestStatus:
		d, ok := e.Data.(events.SpeedtestStatusData)
		if !ok {
			return
		}
		switch d.Status {
		case events.SpeedtestCompleted:
			r.speedtests.WithLabelValues("success").Inc()
			if d.Result != nil && d.Result.DownloadMbps != nil {
				r.download.Set(*d.Result.DownloadMbps)
			}
			if d.Result != nil && d.Result.UploadMbps != nil {
				r.upload.Set(*d.Result.UploadMbps)
			}
		case events.SpeedtestFailed:
			r.speedtests.WithLabelValues("failure").Inc()
		}

	case events.TypeMonitoringStatus:
		if st, ok := e.Data.(models.MonitoringStatus); ok {
			if st.Running {
				r.monitoring.Set(1)
			} else {
				r.monitoring.Set(0)
			}
		}
	}
}
