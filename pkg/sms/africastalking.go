package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	africasTalkingLiveURL    = "https://api.africastalking.com"
	africasTalkingSandboxURL = "https://api.sandbox.africastalking.com"
	africasTalkingPath       = "/version1/messaging"
	sandboxUsername          = "sandbox"
)

// AfricasTalkingConfig configures the Africa's Talking bulk SMS client.
type AfricasTalkingConfig struct {
	Username string
	APIKey   string
	BaseURL  string
	Client   *http.Client
}

// AfricasTalkingGateway talks to the Africa's Talking messaging REST API.
type AfricasTalkingGateway struct {
	username string
	apiKey   string
	endpoint string
	client   *http.Client
}

type atRecipient struct {
	StatusCode int    `json:"statusCode"`
	Number     string `json:"number"`
	Status     string `json:"status"`
	Cost       string `json:"cost"`
	MessageID  string `json:"messageId"`
}

type atResponse struct {
	SMSMessageData struct {
		Message    string        `json:"Message"`
		Recipients []atRecipient `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// NewAfricasTalkingGateway builds the client. The sandbox host is used for the sandbox username.
func NewAfricasTalkingGateway(cfg AfricasTalkingConfig) *AfricasTalkingGateway {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = africasTalkingLiveURL
	}
	if cfg.Username == sandboxUsername && base == africasTalkingLiveURL {
		base = africasTalkingSandboxURL
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &AfricasTalkingGateway{
		username: cfg.Username,
		apiKey:   cfg.APIKey,
		endpoint: base + africasTalkingPath,
		client:   client,
	}
}

// Send posts one message. The context deadline bounds the whole exchange.
func (g *AfricasTalkingGateway) Send(ctx context.Context, recipient, message, senderID string) (*Response, error) {
	form := url.Values{}
	form.Set("username", g.username)
	form.Set("to", recipient)
	form.Set("message", message)
	if senderID != "" {
		form.Set("from", senderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read sms response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed atResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode sms response: %w", err)
	}
	if len(parsed.SMSMessageData.Recipients) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRejected, parsed.SMSMessageData.Message)
	}

	r := parsed.SMSMessageData.Recipients[0]
	// 100 Processed, 101 Sent, 102 Queued
	if r.StatusCode < 100 || r.StatusCode > 102 {
		return nil, fmt.Errorf("%w: %s (%d)", ErrRejected, r.Status, r.StatusCode)
	}
	return &Response{MessageID: r.MessageID, Status: r.Status, Cost: r.Cost}, nil
}
