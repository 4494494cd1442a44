package retention

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"netwatch/app/internal/models"
)

// Purger deletes records of one kind older than a cutoff.
type Purger interface {
	PurgeOlderThan(kind models.RecordKind, cutoff time.Time) (int64, error)
}

// Policy maps each record kind to its maximum age.
type Policy map[models.RecordKind]time.Duration

// DefaultPolicy keeps raw ping data for a week and speedtest/issue history
// for a month.
func DefaultPolicy() Policy {
	return NewPolicy(7, 30)
}

// NewPolicy builds a policy from day counts.
func NewPolicy(pingDays, speedtestDays int) Policy {
	ping := time.Duration(pingDays) * 24 * time.Hour
	speed := time.Duration(speedtestDays) * 24 * time.Hour
	return Policy{
		models.KindPingSample: ping,
		models.KindGapEvent:   ping,
		models.KindSpeedtest:  speed,
		models.KindIssue:      speed,
	}
}

// sweep order is fixed so logs read the same every run
var kinds = []models.RecordKind{
	models.KindPingSample,
	models.KindGapEvent,
	models.KindSpeedtest,
	models.KindIssue,
}

// Result reports rows removed per kind.
type Result map[models.RecordKind]int64

// Total returns the number of rows removed across all kinds.
func (r Result) Total() int64 {
	var n int64
	for _, v := range r {
		n += v
	}
	return n
}

const (
	initialDelay  = 5 * time.Second
	sweepInterval = time.Hour
)

// Sweeper periodically purges expired records.
type Sweeper struct {
	store  Purger
	policy Policy
	now    func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper creates a stopped sweeper.
func NewSweeper(store Purger, policy Policy) *Sweeper {
	return &Sweeper{
		store:  store,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Sweep runs one purge pass. Every kind is attempted even if an earlier
// one fails; the first error is returned.
func (s *Sweeper) Sweep() (Result, error) {
	now := s.now()
	res := make(Result, len(kinds))
	var firstErr error
	for _, kind := range kinds {
		maxAge, ok := s.policy[kind]
		if !ok || maxAge <= 0 {
			continue
		}
		n, err := s.store.PurgeOlderThan(kind, now.Add(-maxAge))
		if err != nil {
			log.Printf("Retention: failed to purge %s: %v", kind, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("purge %s: %w", kind, err)
			}
			continue
		}
		res[kind] = n
	}
	if total := res.Total(); total > 0 {
		log.Printf("Retention: removed %d expired records", total)
	}
	return res, firstErr
}

// Start runs a sweep shortly after startup and then hourly.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Stop halts the periodic sweep. Safe to call more than once.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			_, _ = s.Sweep()
			timer.Reset(sweepInterval)
		}
	}
}
