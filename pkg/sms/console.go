package sms

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message is a captured outbound SMS.
type Message struct {
	Recipient string
	Body      string
	SenderID  string
	SentAt    time.Time
}

// ConsoleGateway logs messages instead of delivering them. Used in development.
type ConsoleGateway struct {
	logger *zap.Logger

	mu   sync.Mutex
	sent []Message
}

// NewConsoleGateway constructs a console gateway.
func NewConsoleGateway(logger *zap.Logger) *ConsoleGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleGateway{logger: logger}
}

// Send records and logs the message.
func (g *ConsoleGateway) Send(ctx context.Context, recipient, message, senderID string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	msg := Message{Recipient: recipient, Body: message, SenderID: senderID, SentAt: time.Now().UTC()}

	g.mu.Lock()
	g.sent = append(g.sent, msg)
	id := len(g.sent)
	g.mu.Unlock()

	g.logger.Info("sms (console)",
		zap.String("to", recipient),
		zap.String("from", senderID),
		zap.String("message", message),
	)
	return &Response{MessageID: fmt.Sprintf("console-%d", id), Status: "Success"}, nil
}

// Sent returns a copy of every captured message.
func (g *ConsoleGateway) Sent() []Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Message, len(g.sent))
	copy(out, g.sent)
	return out
}
