package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/tazhibayda/account-service/internal/log"
	"github.com/tazhibayda/account-service/internal/metrics"
)

// Sender delivers account mail. Implementations must not block past ctx.
type Sender interface {
	SendVerificationOtp(ctx context.Context, to, firstName, code string) error
	SendResetOtp(ctx context.Context, to, firstName, code string) error
}

// SMTPSender sends via a plain-auth SMTP relay.
type SMTPSender struct {
	host string
	port string
	user string
	pass string
	from string
}

func NewSMTP(host, port, user, pass, from string) *SMTPSender {
	if from == "" {
		from = user
	}
	return &SMTPSender{host: host, port: port, user: user, pass: pass, from: from}
}

func (s *SMTPSender) SendVerificationOtp(ctx context.Context, to, firstName, code string) error {
	body, err := renderOtpMail(firstName, code)
	if err != nil {
		return fmt.Errorf("render otp mail: %w", err)
	}
	return s.send(ctx, "verify", to, "Verify your email address", body)
}

func (s *SMTPSender) SendResetOtp(ctx context.Context, to, firstName, code string) error {
	body, err := renderResetMail(firstName, code)
	if err != nil {
		return fmt.Errorf("render reset mail: %w", err)
	}
	return s.send(ctx, "reset", to, "Reset your password", body)
}

func (s *SMTPSender) send(ctx context.Context, kind, to, subject, body string) error {
	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.from, to, subject, body,
	))

	addr := s.host + ":" + s.port
	auth := smtp.PlainAuth("", s.user, s.pass, s.host)

	// smtp.SendMail has no ctx; run it off to the side so a stuck relay
	// surfaces as ctx.Err instead of hanging the request
	done := make(chan error, 1)
	go func() { done <- smtp.SendMail(addr, auth, s.from, []string{to}, msg) }()
	select {
	case err := <-done:
		if err != nil {
			metrics.MailSendTotal.WithLabelValues(kind, "error").Inc()
			log.L.Error("smtp send failed", zap.String("to", to), zap.Error(err))
			return fmt.Errorf("smtp send: %w", err)
		}
		metrics.MailSendTotal.WithLabelValues(kind, "ok").Inc()
		return nil
	case <-ctx.Done():
		metrics.MailSendTotal.WithLabelValues(kind, "timeout").Inc()
		return ctx.Err()
	}
}

// LogSender writes mail to the log instead of sending. Dev/test fallback when
// no SMTP relay is configured.
type LogSender struct{}

func (LogSender) SendVerificationOtp(ctx context.Context, to, firstName, code string) error {
	log.L.Info("mail (dev): verification otp", zap.String("to", to), zap.String("code", code))
	metrics.MailSendTotal.WithLabelValues("verify", "ok").Inc()
	return nil
}

func (LogSender) SendResetOtp(ctx context.Context, to, firstName, code string) error {
	log.L.Info("mail (dev): reset otp", zap.String("to", to), zap.String("code", code))
	metrics.MailSendTotal.WithLabelValues("reset", "ok").Inc()
	return nil
}
