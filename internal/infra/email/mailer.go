// Package email delivers account mails over SMTP. When no SMTP server is
// configured the log mailer stands in so local runs still surface tokens.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

type SMTPMailer struct {
	Addr        string
	From        string
	Username    string
	Password    string
	FrontendURL string
}

func (m SMTPMailer) SendVerification(ctx context.Context, to, token string) error {
	subject := "Verify your email"
	body := fmt.Sprintf("Welcome! Confirm your address by opening:\r\n\r\n%s/verify-email?token=%s\r\n", m.frontend(), token)
	return m.send(ctx, to, subject, body)
}

func (m SMTPMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	subject := "Reset your password"
	body := fmt.Sprintf("A password reset was requested for your account. Open:\r\n\r\n%s/reset-password?token=%s\r\n\r\nIgnore this mail if you did not request it.\r\n", m.frontend(), token)
	return m.send(ctx, to, subject, body)
}

func (m SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(m.Addr) == "" {
		return errors.New("email: smtp address is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if m.Username != "" {
		host := m.Addr
		if idx := strings.LastIndex(host, ":"); idx >= 0 {
			host = host[:idx]
		}
		auth = smtp.PlainAuth("", m.Username, m.Password, host)
	}
	msg := strings.Join([]string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	return smtp.SendMail(m.Addr, auth, m.From, []string{to}, []byte(msg))
}

func (m SMTPMailer) frontend() string {
	if m.FrontendURL != "" {
		return strings.TrimRight(m.FrontendURL, "/")
	}
	return "http://localhost:3000"
}

// LogMailer writes mails to the log instead of sending them.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) SendVerification(ctx context.Context, to, token string) error {
	if m.Logger != nil {
		m.Logger.Info("verification mail suppressed", "to", to, "token", token)
	}
	return nil
}

func (m LogMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	if m.Logger != nil {
		m.Logger.Info("password reset mail suppressed", "to", to, "token", token)
	}
	return nil
}
