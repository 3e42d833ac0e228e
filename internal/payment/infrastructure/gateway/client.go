package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	orderapp "github.com/Mann275/marketplace/internal/order/application"
)

// Client talks to the hosted-checkout provider's order API. Amounts are
// minor currency units throughout, so no conversion happens here.
type Client struct {
	log       *slog.Logger
	http      *http.Client
	baseURL   string
	keyID     string
	keySecret string
}

func NewClient(log *slog.Logger, baseURL, keyID, keySecret string) *Client {
	return &Client{
		log:       log,
		http:      &http.Client{Timeout: 10 * time.Second},
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
	}
}

type createOrderReq struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

func (c *Client) CreateOrder(ctx context.Context, amountCents int64, receipt string) (orderapp.GatewayOrder, error) {
	body, err := json.Marshal(createOrderReq{Amount: amountCents, Currency: "INR", Receipt: receipt})
	if err != nil {
		return orderapp.GatewayOrder{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return orderapp.GatewayOrder{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return orderapp.GatewayOrder{}, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("gateway rejected order", "status", resp.StatusCode)
		return orderapp.GatewayOrder{}, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var gw orderapp.GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&gw); err != nil {
		return orderapp.GatewayOrder{}, fmt.Errorf("decode gateway response: %w", err)
	}
	return gw, nil
}
