package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v17.0"

// Sender delivers outbound text messages to a phone number on the
// messaging channel.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

type Client struct {
	phoneID string
	token   string
	baseURL string
	client  *http.Client
}

func NewClient(phoneID, token string) *Client {
	return &Client{
		phoneID: phoneID,
		token:   token,
		baseURL: defaultGraphBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             sendText `json:"text"`
}

type sendText struct {
	Body string `json:"body"`
}

func (c *Client) SendText(ctx context.Context, to, text string) error {
	if c.phoneID == "" || c.token == "" {
		return fmt.Errorf("whatsapp phone_id/token are not configured")
	}
	endpoint := fmt.Sprintf("%s/%s/messages", strings.TrimRight(c.baseURL, "/"), c.phoneID)
	body := sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             sendText{Body: text},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 400))
		return fmt.Errorf("whatsapp send failed: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	return nil
}
