package speedtest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"netwatch/app/internal/events"
	"netwatch/app/internal/models"
)

// ErrAlreadyRunning is reported when a probe is requested while one is in flight.
var ErrAlreadyRunning = errors.New("already running")

// Window used for the pingAvgMs correlation value.
const pingAverageWindow = 5 * time.Minute

// Store is the write side used by the scheduler.
type Store interface {
	InsertSpeedtest(models.SpeedtestRecord) (int64, error)
	LogIssue(ts time.Time, kind models.IssueKind, format string, args ...any) error
}

// PingAverager supplies the recent mean ping latency.
type PingAverager interface {
	AverageLatency(window time.Duration) (float64, bool, error)
}

// Options controls scheduling. Zero values fall back to the defaults.
type Options struct {
	Interval time.Duration
	Warmup   time.Duration
	Timeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 15 * time.Minute
	}
	if o.Warmup <= 0 {
		o.Warmup = 10 * time.Second
	}
	if o.Timeout <= 0 {
		o.Timeout = 120 * time.Second
	}
	return o
}

// Result is the outcome of one Run call.
type Result struct {
	Success bool                    `json:"success"`
	Record  *models.SpeedtestRecord `json:"result,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// Scheduler runs bandwidth probes periodically and on demand, never more
// than one at a time.
type Scheduler struct {
	runner Runner
	store  Store
	pings  PingAverager
	events events.Publisher
	opts   Options

	now       func() time.Time
	after     func(time.Duration) <-chan time.Time
	newTicker func(time.Duration) (<-chan time.Time, func())

	inFlight atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	runs   sync.WaitGroup
}

// NewScheduler creates a stopped scheduler. pings may be nil.
func NewScheduler(runner Runner, store Store, pings PingAverager, pub events.Publisher, opts Options) *Scheduler {
	if pub == nil {
		pub = events.Discard
	}
	return &Scheduler{
		runner: runner,
		store:  store,
		pings:  pings,
		events: pub,
		opts:   opts.withDefaults(),
		now:    func() time.Time { return time.Now().UTC() },
		after:  time.After,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Running reports whether a probe is in flight.
func (s *Scheduler) Running() bool {
	return s.inFlight.Load()
}

// Run performs one probe. Exactly one SpeedtestRecord is written per
// attempt, unless a probe is already in flight, in which case nothing is
// written and ErrAlreadyRunning is reported.
func (s *Scheduler) Run(ctx context.Context) Result {
	if !s.inFlight.CompareAndSwap(false, true) {
		return Result{Error: ErrAlreadyRunning.Error()}
	}

	s.publish(events.SpeedtestStatusData{Status: events.SpeedtestRunning})

	rec, err := s.measure(ctx)
	s.inFlight.Store(false)

	if err != nil {
		log.Printf("Speedtest failed: %v", err)
		s.publish(events.SpeedtestStatusData{Status: events.SpeedtestFailed, Result: &rec, Error: err.Error()})
		return Result{Record: &rec, Error: err.Error()}
	}

	log.Printf("Speedtest completed: %.1f/%.1f Mbps, %.1f ms", *rec.DownloadMbps, *rec.UploadMbps, *rec.LatencyMs)
	s.publish(events.SpeedtestStatusData{Status: events.SpeedtestCompleted, Result: &rec})
	return Result{Success: true, Record: &rec}
}

func (s *Scheduler) measure(ctx context.Context) (models.SpeedtestRecord, error) {
	rec := models.SpeedtestRecord{Timestamp: s.now()}
	if s.pings != nil {
		avg, ok, err := s.pings.AverageLatency(pingAverageWindow)
		if err != nil {
			log.Printf("Error computing ping average: %v", err)
		} else if ok {
			rec.PingAvgMs = &avg
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	out, err := s.runner.Run(runCtx)
	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	cancel()

	if err != nil {
		if timedOut {
			err = fmt.Errorf("timed out after %s", s.opts.Timeout)
		}
		rec.ID = s.save(rec)
		s.logIssue(rec.Timestamp, models.IssueSpeedtestFailure, "speedtest command failed: %v", err)
		return rec, fmt.Errorf("speedtest command: %w", err)
	}

	m, err := Parse(out)
	if err != nil {
		rec.ID = s.save(rec)
		s.logIssue(rec.Timestamp, models.IssueSpeedtestParseError, "%v", err)
		return rec, err
	}

	rec.Server = &m.Server
	rec.LatencyMs = &m.LatencyMs
	rec.DownloadMbps = &m.DownloadMbps
	rec.UploadMbps = &m.UploadMbps
	rec.ID = s.save(rec)
	return rec, nil
}

func (s *Scheduler) save(rec models.SpeedtestRecord) int64 {
	id, err := s.store.InsertSpeedtest(rec)
	if err != nil {
		log.Printf("Error recording speedtest: %v", err)
		return 0
	}
	return id
}

func (s *Scheduler) logIssue(ts time.Time, kind models.IssueKind, format string, args ...any) {
	if err := s.store.LogIssue(ts, kind, format, args...); err != nil {
		log.Printf("Error recording issue (%s): %v", kind, err)
	}
}

func (s *Scheduler) publish(d events.SpeedtestStatusData) {
	s.events.Publish(events.Event{Type: events.TypeSpeedtestStatus, Time: s.now(), Data: d})
}

// Start begins the warm-up run and the periodic schedule. Calling Start
// on a started scheduler does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	log.Printf("Speedtest scheduler started (every %s, first run in %s)", s.opts.Interval, s.opts.Warmup)
}

// Stop halts the schedule, cancels any in-flight probe and waits for it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.runs.Wait()
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	warmup := s.after(s.opts.Warmup)
	tick, stopTick := s.newTicker(s.opts.Interval)
	defer stopTick()

	for {
		select {
		case <-ctx.Done():
			return
		case <-warmup:
			warmup = nil
			s.trigger(ctx)
		case <-tick:
			s.trigger(ctx)
		}
	}
}

// trigger starts a run without blocking the schedule; overlap is absorbed
// by the in-flight guard.
func (s *Scheduler) trigger(ctx context.Context) {
	if s.Running() {
		log.Printf("Speedtest skipped: previous run still in flight")
		return
	}
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		s.Run(ctx)
	}()
}
