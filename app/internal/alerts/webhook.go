package alerts

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SignatureHeader carries the HMAC-SHA256 of the request body.
const SignatureHeader = "X-Netwatch-Signature"

// SendWebhook posts the alert as JSON to the generic webhook URL with
// optional HMAC signing.
func (m *Manager) SendWebhook(a Alert) error {
	payload := map[string]interface{}{
		"event":     "netwatch_alert",
		"kind":      a.Kind,
		"subject":   a.Subject,
		"message":   plainText(a.Message),
		"timestamp": a.Time.UTC().Format(time.RFC3339),
	}
	if m.config.DashboardURL != "" {
		payload["dashboard_url"] = m.config.DashboardURL
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, m.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "netwatch/1.0")

	if m.config.WebhookSecret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(m.config.WebhookSecret, body))
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
