package alerts

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"netwatch/app/internal/events"
	"netwatch/app/internal/models"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// captureServer records request bodies and headers.
type captureServer struct {
	*httptest.Server
	mu       sync.Mutex
	bodies   [][]byte
	headers  []http.Header
	response int
}

func newCaptureServer(t *testing.T) *captureServer {
	t.Helper()
	cs := &captureServer{response: http.StatusOK}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cs.mu.Lock()
		cs.bodies = append(cs.bodies, body)
		cs.headers = append(cs.headers, r.Header.Clone())
		code := cs.response
		cs.mu.Unlock()
		w.WriteHeader(code)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *captureServer) count() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.bodies)
}

func gapEvent() events.Event {
	return events.Event{
		Type: events.TypeGapDetected,
		Time: base,
		Data: models.GapEvent{Timestamp: base, GapSeconds: 5, SeqFrom: 10, SeqTo: 11},
	}
}

// --------------- normalizeDashboardURL tests ---------------

func TestNormalizeDashboardURL(t *testing.T) {
	cases := map[string]string{
		"":                      "",
		"   ":                   "",
		"example.com":           "http://example.com",
		"https://example.com/":  "https://example.com",
		"  http://example.com ": "http://example.com",
	}
	for in, want := range cases {
		if got := normalizeDashboardURL(in); got != want {
			t.Errorf("normalizeDashboardURL(%q) = %q, want %q", in, got, want)
		}
	}
}

// --------------- FromEvent tests ---------------

func TestFromEvent_Gap(t *testing.T) {
	a, ok := FromEvent(gapEvent())
	if !ok {
		t.Fatal("gap should produce an alert")
	}
	if a.Kind != KindGap || !strings.Contains(a.Message, "5s") {
		t.Errorf("unexpected alert %+v", a)
	}
}

func TestFromEvent_PacketLoss(t *testing.T) {
	a, ok := FromEvent(events.Event{Type: events.TypePacketLoss, Time: base, Data: events.PacketLossData{FromSequence: 3, ToSequence: 7, Lost: 3}})
	if !ok || a.Kind != KindPacketLoss {
		t.Fatalf("unexpected alert %+v ok=%v", a, ok)
	}
}

func TestFromEvent_SpeedtestOnlyOnFailure(t *testing.T) {
	ok := func(status string) bool {
		_, ok := FromEvent(events.Event{Type: events.TypeSpeedtestStatus, Data: events.SpeedtestStatusData{Status: status, Error: "timed out"}})
		return ok
	}
	if ok(events.SpeedtestRunning) || ok(events.SpeedtestCompleted) {
		t.Error("only failures should alert")
	}
	if !ok(events.SpeedtestFailed) {
		t.Error("failed speedtest should alert")
	}
}

func TestFromEvent_IgnoresSamples(t *testing.T) {
	if _, ok := FromEvent(events.Event{Type: events.TypeSample, Data: models.NewReplySample(base, 10, 1, 64)}); ok {
		t.Error("samples should not alert")
	}
}

// --------------- Delivery tests ---------------

func TestNotify_Disabled(t *testing.T) {
	m := NewManager(Config{})
	if m.Enabled() {
		t.Fatal("manager without targets should be disabled")
	}
	m.Notify(gapEvent())
	m.Wait()
}

func TestSendWebhook_BasicPayload(t *testing.T) {
	srv := newCaptureServer(t)
	m := NewManager(Config{WebhookURL: srv.URL, DashboardURL: "netwatch.local"})

	m.Notify(gapEvent())
	m.Wait()

	if srv.count() != 1 {
		t.Fatalf("expected 1 webhook call, got %d", srv.count())
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(srv.bodies[0], &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["kind"] != string(KindGap) {
		t.Errorf("kind = %v", payload["kind"])
	}
	if strings.Contains(payload["message"].(string), "**") {
		t.Errorf("webhook message should be plain text: %v", payload["message"])
	}
	if payload["dashboard_url"] != "http://netwatch.local" {
		t.Errorf("dashboard_url = %v", payload["dashboard_url"])
	}
	if srv.headers[0].Get(SignatureHeader) != "" {
		t.Error("no signature expected without a secret")
	}
}

func TestSendWebhook_WithHMACSignature(t *testing.T) {
	srv := newCaptureServer(t)
	m := NewManager(Config{WebhookURL: srv.URL, WebhookSecret: "s3cret"})

	if err := m.SendWebhook(Alert{Kind: KindGap, Subject: "x", Time: base}); err != nil {
		t.Fatalf("send: %v", err)
	}
	want := "sha256=" + Sign("s3cret", srv.bodies[0])
	if got := srv.headers[0].Get(SignatureHeader); got != want {
		t.Errorf("signature = %q, want %q", got, want)
	}
}

func TestSendWebhook_ErrorStatus(t *testing.T) {
	srv := newCaptureServer(t)
	srv.response = http.StatusInternalServerError
	m := NewManager(Config{WebhookURL: srv.URL})

	if err := m.SendWebhook(Alert{Kind: KindGap, Time: base}); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestSendDiscord(t *testing.T) {
	srv := newCaptureServer(t)
	m := NewManager(Config{DiscordWebhookURL: srv.URL})

	m.Notify(events.Event{Type: events.TypePacketLoss, Time: base, Data: events.PacketLossData{FromSequence: 1, ToSequence: 4, Lost: 2}})
	m.Wait()

	if srv.count() != 1 {
		t.Fatalf("expected 1 discord call, got %d", srv.count())
	}
	var payload struct {
		Embeds []struct {
			Title string `json:"title"`
			Color int    `json:"color"`
		} `json:"embeds"`
	}
	if err := json.Unmarshal(srv.bodies[0], &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(payload.Embeds) != 1 || payload.Embeds[0].Color != 0xeab308 {
		t.Errorf("unexpected embed %+v", payload.Embeds)
	}
}

func TestNotify_Cooldown(t *testing.T) {
	srv := newCaptureServer(t)
	m := NewManager(Config{WebhookURL: srv.URL, Cooldown: time.Minute})

	e := gapEvent()
	m.Notify(e)
	e.Time = base.Add(30 * time.Second)
	m.Notify(e)
	m.Wait()
	if srv.count() != 1 {
		t.Fatalf("second alert inside cooldown should be suppressed, got %d", srv.count())
	}

	// a different kind is not affected
	m.Notify(events.Event{Type: events.TypePacketLoss, Time: base.Add(31 * time.Second), Data: events.PacketLossData{Lost: 1}})
	e.Time = base.Add(2 * time.Minute)
	m.Notify(e)
	m.Wait()
	if srv.count() != 3 {
		t.Errorf("expected 3 deliveries, got %d", srv.count())
	}
}

func TestNotify_BrokerHook(t *testing.T) {
	srv := newCaptureServer(t)
	m := NewManager(Config{WebhookURL: srv.URL})
	b := events.NewBroker()
	b.AddHook(m.Notify)

	b.Publish(gapEvent())
	b.Publish(events.Event{Type: events.TypeSample, Data: models.NewReplySample(base, 10, 1, 64)})
	m.Wait()

	if srv.count() != 1 {
		t.Errorf("expected 1 delivery, got %d", srv.count())
	}
}
