package monitor

import (
	"sync"
	"time"
)

// Observation is what the tracker learned from one real reply.
type Observation struct {
	// GapSeconds is the whole seconds since the previous real reply, or 0
	// when there was none.
	GapSeconds   int
	HadPrevious  bool
	PrevSequence int
	// Lost counts sequence numbers skipped since the previous reply.
	Lost int
}

// ArrivalTracker keeps the last reply time and sequence for one probe run.
// It is safe for concurrent use.
type ArrivalTracker struct {
	mu           sync.Mutex
	startedAt    time.Time
	lastArrival  time.Time
	hasArrival   bool
	lastSequence int
}

// NewArrivalTracker creates a tracker with no history.
func NewArrivalTracker() *ArrivalTracker {
	return &ArrivalTracker{}
}

// Reset forgets all replies; silence is measured from now until the first
// reply arrives.
func (t *ArrivalTracker) Reset(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedAt = now
	t.lastArrival = time.Time{}
	t.hasArrival = false
	t.lastSequence = 0
}

// Observe records a real reply and reports the gap and sequence jump it
// closes. Sequence 0 is treated as "no previous sequence" for loss purposes.
func (t *ArrivalTracker) Observe(sequence int, now time.Time) Observation {
	t.mu.Lock()
	defer t.mu.Unlock()

	obs := Observation{
		HadPrevious:  t.hasArrival,
		PrevSequence: t.lastSequence,
	}
	if t.hasArrival {
		obs.GapSeconds = int(now.Sub(t.lastArrival) / time.Second)
	}
	if t.lastSequence > 0 && sequence > t.lastSequence+1 {
		obs.Lost = sequence - (t.lastSequence + 1)
	}

	t.lastArrival = now
	t.hasArrival = true
	t.lastSequence = sequence
	return obs
}

// SilentFor returns how long it has been since the last reply, or since
// Reset if no reply has arrived yet.
func (t *ArrivalTracker) SilentFor(now time.Time) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	ref := t.startedAt
	if t.hasArrival {
		ref = t.lastArrival
	}
	return now.Sub(ref)
}

// LastArrival returns the time of the last real reply.
func (t *ArrivalTracker) LastArrival() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastArrival, t.hasArrival
}
