// Package email delivers notification emails over SMTP. Message content is
// rendered by the notification module; this package only transports it.
package email

import "context"

// Sender delivers a single plain-text email.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, body string) error
}

// NewSender picks the SMTP sender when email is enabled, otherwise a
// logging no-op so local environments work without an SMTP server.
func NewSender(cfg Config, log Logger) Sender {
	if cfg.GetEmailEnabled() {
		return NewSMTPSender(cfg)
	}
	return NewLogSender(log)
}

// Config is the subset of application configuration the senders need.
type Config interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// Logger is satisfied by *logger.Logger.
type Logger interface {
	Info(msg string, args ...any)
}
