package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go-raffle-engine/config"

	qrcode "github.com/skip2/go-qrcode"
)

// Charge is the gateway's answer to a charge creation: the provider-side id
// used to correlate webhook events, the copy-paste PIX payload, and the same
// payload rendered as a base64 PNG QR code.
type Charge struct {
	ChargeID  string `json:"charge_id"`
	QRPayload string `json:"qr_payload"`
	QRImage   string `json:"qr_image"`
}

// PaymentGateway is the external payment collaborator. The engine only ever
// creates charges; status comes back asynchronously through the webhook.
type PaymentGateway interface {
	CreateCharge(ctx context.Context, amount float64, reference string) (*Charge, error)
}

type PixGateway struct {
	cfg    config.GatewayConfig
	client *http.Client
}

func NewPixGateway(cfg config.GatewayConfig) PaymentGateway {
	return &PixGateway{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type createChargeRequest struct {
	Amount            string `json:"amount"`
	PixKey            string `json:"pix_key"`
	ExternalReference string `json:"external_reference"`
	NotificationURL   string `json:"notification_url"`
}

type createChargeResponse struct {
	ID        string `json:"id"`
	QRPayload string `json:"qr_payload"`
}

func (g *PixGateway) CreateCharge(ctx context.Context, amount float64, reference string) (*Charge, error) {
	body, err := json.Marshal(createChargeRequest{
		Amount:            strconv.FormatFloat(amount, 'f', 2, 64),
		PixKey:            g.cfg.PixKey,
		ExternalReference: reference,
		NotificationURL:   g.cfg.WebhookURL,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.AccessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("create charge: gateway returned %d", resp.StatusCode)
	}

	var chargeResp createChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&chargeResp); err != nil {
		return nil, fmt.Errorf("create charge: decode response: %w", err)
	}

	image, err := encodeQR(chargeResp.QRPayload)
	if err != nil {
		return nil, err
	}

	return &Charge{
		ChargeID:  chargeResp.ID,
		QRPayload: chargeResp.QRPayload,
		QRImage:   image,
	}, nil
}

func encodeQR(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
