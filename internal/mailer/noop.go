package mailer

import (
	"context"
	"log"
)

// NoopBackend logs outbound emails instead of publishing them. Used
// when no broker is configured (local development).
type NoopBackend struct{}

// NewNoopBackend constructs a NoopBackend.
func NewNoopBackend() *NoopBackend {
	return &NoopBackend{}
}

// Publish logs the message and drops it.
func (n *NoopBackend) Publish(_ context.Context, channel string, data []byte, _ map[string]string) (string, error) {
	log.Printf("mailer (noop): channel=%s payload=%s", channel, data)
	return "", nil
}

// Close is a no-op.
func (n *NoopBackend) Close() error {
	return nil
}
