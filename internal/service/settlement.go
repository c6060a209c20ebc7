package service

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// ==============================================
// SETTLEMENT WEBHOOK
// ==============================================

// WebhookSettlementNotifier posts a settlement event to a downstream
// listener. Fire-and-forget: the payment response never waits on it
// and failures are only logged.
type WebhookSettlementNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookSettlementNotifier(url string) *WebhookSettlementNotifier {
	return &WebhookSettlementNotifier{
		url:    url,
		client: &http.Client{Timeout: 4 * time.Second},
	}
}

func (n *WebhookSettlementNotifier) NotifySettled(transactionID, orderID string, amount int64) {
	if n.url == "" {
		return
	}

	go func() {
		event := map[string]interface{}{
			"transactionId": transactionID,
			"orderId":       orderID,
			"amount":        amount,
			"settledAt":     time.Now().UTC().Format(time.RFC3339),
		}
		body, err := json.Marshal(event)
		if err != nil {
			log.Printf("[SETTLEMENT] Failed to marshal event for %s: %v", transactionID, err)
			return
		}

		resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Printf("[SETTLEMENT] Webhook failed for %s: %v", transactionID, err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			log.Printf("[SETTLEMENT] Webhook for %s returned %d", transactionID, resp.StatusCode)
		}
	}()
}

// NoopSettlementNotifier is used when no listener is configured
type NoopSettlementNotifier struct{}

func (NoopSettlementNotifier) NotifySettled(string, string, int64) {}
