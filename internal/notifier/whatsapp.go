package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go-raffle-engine/config"
)

// WhatsAppNotifier sends text messages through an Evolution-style WhatsApp
// API instance.
type WhatsAppNotifier struct {
	cfg    config.NotifierConfig
	client *http.Client
}

func NewWhatsAppNotifier(cfg config.NotifierConfig) Notifier {
	return &WhatsAppNotifier{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

func (n *WhatsAppNotifier) Send(ctx context.Context, recipient, message string) error {
	// The API expects a JID, not a bare phone number.
	if !strings.HasSuffix(recipient, "@s.whatsapp.net") {
		recipient = recipient + "@s.whatsapp.net"
	}

	body, err := json.Marshal(sendTextRequest{
		Number: recipient,
		Text:   message,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/message/sendText/%s", n.cfg.WhatsAppBaseURL, n.cfg.WhatsAppInstance)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("apikey", n.cfg.WhatsAppAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("send whatsapp message: api returned %d", resp.StatusCode)
	}

	return nil
}
