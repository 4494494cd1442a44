package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"netwatch/app/internal/events"
	"netwatch/app/internal/models"
)

const (
	// TimeoutThresholdSeconds is the real-to-real gap that must be exceeded
	// before a GapEvent is recorded.
	TimeoutThresholdSeconds = 2
	// SilenceThreshold is how long the watchdog tolerates no replies before
	// inserting a timeout marker.
	SilenceThreshold = 1500 * time.Millisecond
	// WatchdogInterval is the watchdog tick period.
	WatchdogInterval = time.Second
)

// Store is the write side used by the supervisor.
type Store interface {
	InsertPing(models.PingSample) (int64, error)
	InsertGap(models.GapEvent) (int64, error)
	LogIssue(ts time.Time, kind models.IssueKind, format string, args ...any) error
}

// Supervisor owns the reachability-probe process, turns its output into
// samples and detects gaps, packet loss and silence.
//
// All probe output, exits and watchdog ticks are handled one at a time on a
// single loop goroutine.
type Supervisor struct {
	store   Store
	events  events.Publisher
	launch  Launcher
	target  string
	tracker *ArrivalTracker

	now       func() time.Time
	newTicker func(time.Duration) (<-chan time.Time, func())

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSupervisor creates a stopped supervisor.
func NewSupervisor(target string, launch Launcher, store Store, pub events.Publisher) *Supervisor {
	if pub == nil {
		pub = events.Discard
	}
	return &Supervisor{
		store:     store,
		events:    pub,
		launch:    launch,
		target:    target,
		tracker:   NewArrivalTracker(),
		now:       func() time.Time { return time.Now().UTC() },
		newTicker: realTicker,
	}
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Start launches the probe and the watchdog. It is a no-op while running.
// A launch failure is logged as a probe error and leaves the supervisor
// stopped.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	now := s.now()
	s.tracker.Reset(now)

	ctx, cancel := context.WithCancel(context.Background())
	probe, err := s.launch(ctx)
	if err != nil {
		cancel()
		s.logIssue(now, models.IssueProbeError, "failed to start probe: %v", err)
		log.Printf("Ping probe failed to start: %v", err)
		return fmt.Errorf("start probe: %w", err)
	}

	tick, stopTick := s.newTicker(WatchdogInterval)
	done := make(chan struct{})
	s.running = true
	s.startedAt = now
	s.cancel = cancel
	s.done = done

	go s.loop(ctx, probe, tick, stopTick, done)

	log.Printf("Ping monitoring started (target %s)", s.target)
	s.publishStatusLocked()
	return nil
}

// Stop terminates the probe and the watchdog and waits for the loop to
// exit. Safe to call when already stopped.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// Running reports whether the probe is active.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns the monitoring state for the control surface.
func (s *Supervisor) Status() models.MonitoringStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Supervisor) statusLocked() models.MonitoringStatus {
	st := models.MonitoringStatus{Running: s.running, Target: s.target}
	if s.running {
		started := s.startedAt
		st.StartedAt = &started
	}
	if last, ok := s.tracker.LastArrival(); ok {
		st.LastReplyAt = &last
	}
	return st
}

func (s *Supervisor) publishStatusLocked() {
	s.events.Publish(events.Event{
		Type: events.TypeMonitoringStatus,
		Time: s.now(),
		Data: s.statusLocked(),
	})
}

func (s *Supervisor) loop(ctx context.Context, probe Probe, tick <-chan time.Time, stopTick func(), done chan struct{}) {
	defer close(done)
	defer stopTick()

	lines := probe.Lines()
	for {
		select {
		case <-ctx.Done():
			probe.Stop()
			s.finish(nil, false)
			return

		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			s.handleLine(line, s.now())

		case err := <-probe.Done():
			if lines != nil {
				for line := range lines {
					s.handleLine(line, s.now())
				}
			}
			s.finish(err, true)
			return

		case <-tick:
			// a tick racing with Stop must not insert after shutdown
			if ctx.Err() != nil {
				continue
			}
			s.checkSilence(s.now())
		}
	}
}

// finish moves the supervisor to Stopped. exited is true when the probe
// ended on its own rather than through Stop.
func (s *Supervisor) finish(exitErr error, exited bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.running = false
	s.cancel = nil

	if exited {
		now := s.now()
		if exitErr != nil {
			s.logIssue(now, models.IssueProbeError, "probe exited: %v", exitErr)
			log.Printf("Ping probe exited: %v", exitErr)
		} else {
			s.logIssue(now, models.IssueProbeError, "probe exited unexpectedly")
			log.Printf("Ping probe exited unexpectedly")
		}
	} else {
		log.Printf("Ping monitoring stopped")
	}
	s.publishStatusLocked()
}

// handleLine processes one line of probe output received at now.
func (s *Supervisor) handleLine(line string, now time.Time) {
	reply, ok := ParseReply(line)
	if !ok {
		return
	}

	sample := models.NewReplySample(now, reply.LatencyMs, reply.Sequence, reply.TTL)
	if id, err := s.store.InsertPing(sample); err != nil {
		log.Printf("Error recording ping sample: %v", err)
	} else {
		sample.ID = id
	}

	obs := s.tracker.Observe(reply.Sequence, now)

	if obs.HadPrevious && obs.GapSeconds > TimeoutThresholdSeconds {
		gap := models.GapEvent{
			Timestamp:  now,
			GapSeconds: obs.GapSeconds,
			SeqFrom:    obs.PrevSequence,
			SeqTo:      reply.Sequence,
		}
		if id, err := s.store.InsertGap(gap); err != nil {
			log.Printf("Error recording gap event: %v", err)
		} else {
			gap.ID = id
		}
		s.logIssue(now, models.IssueTimeout, "no reply for %ds (icmp_seq %d -> %d)", gap.GapSeconds, gap.SeqFrom, gap.SeqTo)
		s.events.Publish(events.Event{Type: events.TypeGapDetected, Time: now, Data: gap})
	}

	if obs.Lost > 0 {
		s.logIssue(now, models.IssuePacketLoss, "%d packet(s) lost between icmp_seq %d and %d", obs.Lost, obs.PrevSequence, reply.Sequence)
		s.events.Publish(events.Event{
			Type: events.TypePacketLoss,
			Time: now,
			Data: events.PacketLossData{
				FromSequence: obs.PrevSequence,
				ToSequence:   reply.Sequence,
				Lost:         obs.Lost,
			},
		})
	}

	s.events.Publish(events.Event{Type: events.TypeSample, Time: now, Data: sample})
}

// checkSilence inserts a timeout marker when no reply has arrived within
// SilenceThreshold. The arrival clock is left untouched, so an outage
// produces one marker per tick.
func (s *Supervisor) checkSilence(now time.Time) {
	if s.tracker.SilentFor(now) <= SilenceThreshold {
		return
	}
	sample := models.NewTimeoutSample(now)
	if id, err := s.store.InsertPing(sample); err != nil {
		log.Printf("Error recording timeout marker: %v", err)
	} else {
		sample.ID = id
	}
	s.events.Publish(events.Event{Type: events.TypeTimeout, Time: now, Data: sample})
}

func (s *Supervisor) logIssue(now time.Time, kind models.IssueKind, format string, args ...any) {
	if err := s.store.LogIssue(now, kind, format, args...); err != nil {
		log.Printf("Error recording issue (%s): %v", kind, err)
	}
}
