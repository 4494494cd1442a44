package events

import (
	"log"
	"sync"
	"time"

	"netwatch/app/internal/models"
)

// Type names an event on the presentation stream
type Type string

const (
	TypeSample           Type = "sample"
	TypeTimeout          Type = "timeout"
	TypeGapDetected      Type = "gapDetected"
	TypePacketLoss       Type = "packetLossDetected"
	TypeSpeedtestStatus  Type = "speedtestStatusChanged"
	TypeMonitoringStatus Type = "monitoringStatusChanged"
)

// Event is the payload sent to subscribers
type Event struct {
	Type Type      `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

// PacketLossData accompanies TypePacketLoss.
type PacketLossData struct {
	FromSequence int `json:"from_sequence"`
	ToSequence   int `json:"to_sequence"`
	Lost         int `json:"lost"`
}

// Speedtest statuses carried by TypeSpeedtestStatus.
const (
	SpeedtestRunning   = "running"
	SpeedtestCompleted = "completed"
	SpeedtestFailed    = "failed"
)

// SpeedtestStatusData accompanies TypeSpeedtestStatus.
type SpeedtestStatusData struct {
	Status string                  `json:"status"`
	Result *models.SpeedtestRecord `json:"result,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// Publisher is implemented by anything that accepts events.
type Publisher interface {
	Publish(Event)
}

// Discard drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}

// Broker fans events out to subscribers and synchronous hooks
type Broker struct {
	mu      sync.Mutex
	clients map[chan Event]bool
	hooks   []func(Event)
	dropped uint64
}

// NewBroker creates an empty broker
func NewBroker() *Broker {
	return &Broker{clients: make(map[chan Event]bool)}
}

// Subscribe listens for events
func (b *Broker) Subscribe() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, 100)
	b.clients[ch] = true
	return ch
}

// Unsubscribe removes a listener and closes its channel
func (b *Broker) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
	}
}

// AddHook registers fn to be called for every event, in publish order.
// Hooks run on the publisher's goroutine and must not block.
func (b *Broker) AddHook(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hooks = append(b.hooks, fn)
}

// Publish delivers e to hooks and subscribers. Subscribers whose buffer is
// full miss the event.
func (b *Broker) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, fn := range b.hooks {
		fn(e)
	}
	for ch := range b.clients {
		select {
		case ch <- e:
		default:
			b.dropped++
			if b.dropped%100 == 1 {
				log.Printf("[EVENTS] slow subscriber, dropped %d event(s) so far", b.dropped)
			}
		}
	}
}

// Subscribers returns the number of connected listeners.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Dropped returns how many deliveries were skipped because a subscriber
// was full.
func (b *Broker) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
