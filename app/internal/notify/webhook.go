package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pulse/app/internal/alerts"
)

// SignatureHeader carries the HMAC-SHA256 of the webhook body
const SignatureHeader = "X-Pulse-Signature"

// Webhook posts a JSON payload to a generic URL with optional HMAC signing
type Webhook struct {
	URL    string
	Secret string
	Client *http.Client
}

type webhookPayload struct {
	Event          string `json:"event"`
	ID             string `json:"id"`
	Endpoint       string `json:"endpoint"`
	Transition     string `json:"transition"`
	Severity       string `json:"severity"`
	PreviousStatus string `json:"previous_status"`
	CurrentStatus  string `json:"current_status"`
	Message        string `json:"message"`
	Timestamp      string `json:"timestamp"`
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Notify(ctx context.Context, a alerts.Alert) error {
	body, err := json.Marshal(webhookPayload{
		Event:          "status_change",
		ID:             a.ID,
		Endpoint:       a.Endpoint,
		Transition:     string(a.Transition),
		Severity:       string(a.Severity),
		PreviousStatus: string(a.Previous),
		CurrentStatus:  string(a.Current),
		Message:        a.Message,
		Timestamp:      a.Timestamp.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	headers := map[string]string{}
	if w.Secret != "" {
		headers[SignatureHeader] = "sha256=" + Sign(w.Secret, body)
	}
	return postBody(ctx, clientOrDefault(w.Client), w.URL, body, headers)
}

// Sign returns the hex HMAC-SHA256 of body under secret
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
