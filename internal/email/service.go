// File: internal/email/service.go
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"repairdesk_backend/internal/config"

	"go.uber.org/zap"
)

// Message is a plain-text email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Sender delivers emails. Deliveries are best effort: status-change mail is
// never allowed to fail the workflow that triggered it.
type Sender interface {
	// Send delivers synchronously.
	Send(ctx context.Context, msg Message) error
	// SendAsync delivers in the background, logging failures.
	SendAsync(msg Message)
}

// NewSender returns an SMTP-backed sender, or a logging no-op sender when
// no SMTP host is configured.
func NewSender(cfg *config.Config, logger *zap.Logger) Sender {
	if cfg.SMTPHost == "" {
		logger.Info("SMTP not configured, email delivery disabled")
		return &noopSender{logger: logger.Named("email")}
	}
	return &smtpSender{cfg: cfg, logger: logger.Named("email")}
}

type smtpSender struct {
	cfg    *config.Config
	logger *zap.Logger
}

func (s *smtpSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.EmailFromAddress)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.Body)

	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort
	if err := smtp.SendMail(addr, nil, s.cfg.EmailFromAddress, msg.To, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp delivery to %s failed: %w", addr, err)
	}
	s.logger.Info("Email sent", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (s *smtpSender) SendAsync(msg Message) {
	go func() {
		if err := s.Send(context.Background(), msg); err != nil {
			s.logger.Error("Background email delivery failed",
				zap.Error(err), zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
		}
	}()
}

type noopSender struct {
	logger *zap.Logger
}

func (s *noopSender) Send(ctx context.Context, msg Message) error {
	s.logger.Debug("Email delivery skipped",
		zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (s *noopSender) SendAsync(msg Message) {
	_ = s.Send(context.Background(), msg)
}
