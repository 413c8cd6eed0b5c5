// Package mail delivers notifications over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gomail "github.com/wneessen/go-mail"

	"github.com/couchcryptid/event-weather-service/internal/config"
	"github.com/couchcryptid/event-weather-service/internal/notify"
)

// Sender sends notify.Mail through an SMTP relay. Recipients are put on Bcc
// so subscribers do not see each other's addresses.
type Sender struct {
	client *gomail.Client
	logger *slog.Logger
}

// NewSender creates an SMTP sender from the SMTP_* settings.
func NewSender(cfg *config.Config, logger *slog.Logger) (*Sender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.SMTPPort),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.SMTPUsername),
			gomail.WithPassword(cfg.SMTPPassword),
		)
	}
	client, err := gomail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &Sender{client: client, logger: logger}, nil
}

// Send delivers one message to all recipients.
func (s *Sender) Send(ctx context.Context, m notify.Mail) error {
	msg, err := buildMessage(m)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	s.logger.Debug("mail sent", "subject", m.Subject, "recipients", len(m.To))
	return nil
}

func buildMessage(m notify.Mail) (*gomail.Msg, error) {
	if len(m.To) == 0 {
		return nil, errors.New("no recipients")
	}
	msg := gomail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.From, err)
	}
	if err := msg.To(m.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.From, err)
	}
	if err := msg.Bcc(m.To...); err != nil {
		return nil, fmt.Errorf("invalid recipients: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, m.Body)
	return msg, nil
}

// LogSender writes messages to the log instead of sending them. It is used
// when no SMTP relay is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, m notify.Mail) error {
	if len(m.To) == 0 {
		return errors.New("no recipients")
	}
	s.logger.Info("mail (not sent, smtp disabled)",
		"from", m.From,
		"to", strings.Join(m.To, ","),
		"subject", m.Subject,
		"body", m.Body,
	)
	return nil
}
