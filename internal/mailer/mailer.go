package mailer

import (
	"context"
	"encoding/json"
)

// Email templates understood by the external delivery worker.
const (
	TemplatePasswordReset    = "password-reset"
	TemplateVerificationCode = "verification-code"
)

// Backend publishes outbound email messages to a broker. Actual
// delivery is owned by a worker consuming on the other side.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Envelope is the payload published for each outbound email.
type Envelope struct {
	Template string            `json:"template"`
	To       string            `json:"to"`
	Params   map[string]string `json:"params"`
}

// Mailer dispatches account emails through a backend on a fixed channel.
type Mailer struct {
	backend Backend
	channel string
}

// New constructs a Mailer publishing on the named channel.
func New(backend Backend, channel string) *Mailer {
	return &Mailer{backend: backend, channel: channel}
}

// SendPasswordReset dispatches a password-reset email carrying the token.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, token string) error {
	return m.send(ctx, Envelope{
		Template: TemplatePasswordReset,
		To:       to,
		Params:   map[string]string{"token": token},
	})
}

// SendVerificationCode dispatches an email-verification code.
func (m *Mailer) SendVerificationCode(ctx context.Context, to, code string) error {
	return m.send(ctx, Envelope{
		Template: TemplateVerificationCode,
		To:       to,
		Params:   map[string]string{"code": code},
	})
}

// Close closes the underlying backend.
func (m *Mailer) Close() error {
	return m.backend.Close()
}

func (m *Mailer) send(ctx context.Context, envelope Envelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	_, err = m.backend.Publish(ctx, m.channel, data, map[string]string{
		"template": envelope.Template,
	})
	return err
}
