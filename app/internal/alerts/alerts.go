package alerts

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"netwatch/app/internal/events"
	"netwatch/app/internal/models"
)

// Config holds the notification targets.
type Config struct {
	WebhookURL        string
	WebhookSecret     string
	DiscordWebhookURL string
	DashboardURL      string
	// Cooldown suppresses repeat alerts of the same kind.
	Cooldown time.Duration
}

// Kind classifies an alert
type Kind string

const (
	KindGap             Kind = "gap"
	KindPacketLoss      Kind = "packet_loss"
	KindSpeedtestFailed Kind = "speedtest_failed"
)

// Alert is one outbound notification.
type Alert struct {
	Kind    Kind      `json:"kind"`
	Subject string    `json:"subject"`
	Message string    `json:"message"`
	Time    time.Time `json:"timestamp"`
}

// Manager delivers alerts for connectivity problems to the configured
// webhooks. Delivery is asynchronous and never blocks the caller.
type Manager struct {
	config Config
	client *http.Client
	now    func() time.Time

	mu       sync.Mutex
	lastSent map[Kind]time.Time
	pending  sync.WaitGroup
}

// NewManager creates a new alerts manager
func NewManager(cfg Config) *Manager {
	cfg.DashboardURL = normalizeDashboardURL(cfg.DashboardURL)
	return &Manager{
		config:   cfg,
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      func() time.Time { return time.Now().UTC() },
		lastSent: make(map[Kind]time.Time),
	}
}

// Enabled reports whether any delivery target is configured.
func (m *Manager) Enabled() bool {
	return m.config.WebhookURL != "" || m.config.DiscordWebhookURL != ""
}

// Notify is a broker hook that turns gap, packet-loss and failed-speedtest
// events into alerts.
func (m *Manager) Notify(e events.Event) {
	if !m.Enabled() {
		return
	}
	a, ok := FromEvent(e)
	if !ok {
		return
	}
	if !m.allow(a.Kind, a.Time) {
		return
	}
	m.dispatchAll(a)
}

// FromEvent builds an alert for events that warrant one.
func FromEvent(e events.Event) (Alert, bool) {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	switch e.Type {
	case events.TypeGapDetected:
		g, ok := e.Data.(models.GapEvent)
		if !ok {
			return Alert{}, false
		}
		return Alert{
			Kind:    KindGap,
			Subject: "Connectivity gap detected",
			Message: fmt.Sprintf("No reply for **%ds** (icmp_seq %d -> %d).", g.GapSeconds, g.SeqFrom, g.SeqTo),
			Time:    ts,
		}, true

	case events.TypePacketLoss:
		d, ok := e.Data.(events.PacketLossData)
		if !ok {
			return Alert{}, false
		}
		return Alert{
			Kind:    KindPacketLoss,
			Subject: "Packet loss detected",
			Message: fmt.Sprintf("**%d** packet(s) lost between icmp_seq %d and %d.", d.Lost, d.FromSequence, d.ToSequence),
			Time:    ts,
		}, true

	case events.TypeSpeedtestStatus:
		d, ok := e.Data.(events.SpeedtestStatusData)
		if !ok || d.Status != events.SpeedtestFailed {
			return Alert{}, false
		}
		return Alert{
			Kind:    KindSpeedtestFailed,
			Subject: "Speedtest failed",
			Message: fmt.Sprintf("Bandwidth probe failed: %s", d.Error),
			Time:    ts,
		}, true
	}
	return Alert{}, false
}

// allow applies the per-kind cooldown.
func (m *Manager) allow(kind Kind, at time.Time) bool {
	if m.config.Cooldown <= 0 {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if last, ok := m.lastSent[kind]; ok && at.Sub(last) < m.config.Cooldown {
		return false
	}
	m.lastSent[kind] = at
	return true
}

func (m *Manager) dispatchAll(a Alert) {
	log.Printf("Alert: %s - %s", a.Subject, plainText(a.Message))

	if m.config.WebhookURL != "" {
		m.goSend(func() error { return m.SendWebhook(a) }, "webhook")
	}
	if m.config.DiscordWebhookURL != "" {
		m.goSend(func() error { return m.SendDiscord(a) }, "discord")
	}
}

func (m *Manager) goSend(send func() error, channel string) {
	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		if err := send(); err != nil {
			log.Printf("Alert delivery via %s failed: %v", channel, err)
		}
	}()
}

// Wait blocks until in-flight deliveries finish.
func (m *Manager) Wait() {
	m.pending.Wait()
}

func plainText(msg string) string {
	return strings.ReplaceAll(msg, "**", "")
}

func normalizeDashboardURL(raw string) string {
	url := strings.TrimSpace(raw)
	if url == "" {
		return ""
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	return strings.TrimRight(url, "/")
}
