package email

import "context"

// LogSender logs messages instead of sending them. Used when SMTP is not
// configured.
type LogSender struct {
	log Logger
}

func NewLogSender(log Logger) *LogSender {
	return &LogSender{log: log}
}

var _ Sender = (*LogSender)(nil)

func (s *LogSender) Send(_ context.Context, toEmail, subject, body string) error {
	s.log.Info("email delivery disabled, logging instead",
		"to", toEmail,
		"subject", subject,
		"body_length", len(body),
	)
	return nil
}
