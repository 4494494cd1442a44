package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

var discordColors = map[Kind]int{
	KindGap:             0xef4444,
	KindPacketLoss:      0xeab308,
	KindSpeedtestFailed: 0xf97316,
}

// SendDiscord sends a rich embed message via Discord webhook
func (m *Manager) SendDiscord(a Alert) error {
	embed := map[string]interface{}{
		"title":       a.Subject,
		"description": a.Message,
		"color":       discordColors[a.Kind],
		"fields": []map[string]interface{}{
			{"name": "Kind", "value": string(a.Kind), "inline": true},
			{"name": "Time", "value": a.Time.Format(time.RFC1123), "inline": true},
		},
		"footer": map[string]string{"text": "netwatch connectivity monitor"},
	}
	if m.config.DashboardURL != "" {
		embed["url"] = m.config.DashboardURL
	}
	payload := map[string]interface{}{
		"username": "netwatch",
		"embeds":   []map[string]interface{}{embed},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode discord payload: %w", err)
	}
	resp, err := m.client.Post(m.config.DiscordWebhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord returned status %d", resp.StatusCode)
	}
	return nil
}
