package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"netwatch/app/internal/events"
)

const (
	eventsWriteTimeout = 5 * time.Second
	eventsPingInterval = 30 * time.Second
	eventsPongWait     = 2 * eventsPingInterval
)

// EventSource is the broker side used by the stream handler.
type EventSource interface {
	Subscribe() chan events.Event
	Unsubscribe(ch chan events.Event)
}

var eventsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

// parseTypes reads the optional comma separated ?types= filter.
func parseTypes(r *http.Request) map[events.Type]bool {
	raw := r.URL.Query().Get("types")
	if raw == "" {
		return nil
	}
	set := make(map[events.Type]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			set[events.Type(t)] = true
		}
	}
	return set
}

// HandleEvents upgrades to a WebSocket and streams monitor events as JSON
func HandleEvents(src EventSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := parseTypes(r)
		conn, err := eventsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ch := src.Subscribe()
		defer src.Unsubscribe(ch)

		// server read deadlines survive the hijack; pongs extend ours
		_ = conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		})

		// client messages are ignored; reading detects disconnects
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(eventsPingInterval)
		defer ping.Stop()

		for {
			select {
			case e, ok := <-ch:
				if !ok {
					return
				}
				if filter != nil && !filter[e.Type] {
					continue
				}
				_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteTimeout))
				if err := conn.WriteJSON(e); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventsWriteTimeout)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}
}
