// Package sms defines the boundary to the SMS/communications collaborator.
// Real delivery is out of scope; the shipped implementation logs the
// dispatch, matching the reference system's stub.
package sms

import (
	"context"
	"log/slog"
)

// Sender delivers a text message to a phone number.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// LogSender writes every dispatch to the structured log instead of sending.
type LogSender struct {
	Logger *slog.Logger
}

// Send logs the message and reports success.
func (s *LogSender) Send(ctx context.Context, to, body string) error {
	s.Logger.Info("sms dispatched", "to", to, "body", body)
	return nil
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, to, body string) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, to, body string) error {
	return f(ctx, to, body)
}
