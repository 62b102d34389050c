// Package sms wraps outbound SMS providers behind a single Gateway contract.
package sms

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-api/pkg/config"
)

// ErrRejected is returned when the provider accepted the request but refused the recipient.
var ErrRejected = errors.New("sms rejected by provider")

// Response is the provider acknowledgement. Callers only rely on success or failure.
type Response struct {
	MessageID string `json:"message_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Cost      string `json:"cost,omitempty"`
}

// Gateway sends a single text message.
type Gateway interface {
	Send(ctx context.Context, recipient, message, senderID string) (*Response, error)
}

// New selects a gateway implementation based on configuration.
func New(cfg config.SMSConfig, logger *zap.Logger) (Gateway, error) {
	switch cfg.Provider {
	case config.SMSProviderAfricasTalking:
		if cfg.APIKey == "" {
			return nil, errors.New("AFRICASTALKING_API_KEY is required for the africastalking provider")
		}
		return NewAfricasTalkingGateway(AfricasTalkingConfig{
			Username: cfg.Username,
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Client:   &http.Client{Timeout: cfg.Timeout},
		}), nil
	case config.SMSProviderConsole, "":
		return NewConsoleGateway(logger), nil
	default:
		return nil, fmt.Errorf("unsupported sms provider %q", cfg.Provider)
	}
}
