package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PushGateway delivers notifications through an external push service
// over HTTP. With Skip set it acknowledges without calling out, which
// keeps dev environments working without a gateway.
type PushGateway struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

var _ Sender = (*PushGateway)(nil)

// NewPushGateway creates a push gateway client.
func NewPushGateway(baseURL string, skip bool) *PushGateway {
	return &PushGateway{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name implements Sender.
func (c *PushGateway) Name() string { return "push" }

// Send implements Sender.
func (c *PushGateway) Send(ctx context.Context, d Delivery) error {
	if c.Skip {
		return nil
	}
	if d.RecipientID == "" {
		return fmt.Errorf("recipient required")
	}

	body, _ := json.Marshal(map[string]string{
		"user_id": d.RecipientID,
		"type":    d.Type,
		"message": d.Message,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/push", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("push gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("push gateway error %s: %s", resp.Status, string(bodyBytes))
	}
	return nil
}
