// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

// Package mail delivers password reset emails.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/samber/oops"
)

// Dispatcher sends password reset messages to account holders.
type Dispatcher interface {
	SendPasswordReset(ctx context.Context, to, resetLink string) error
}

// SMTPConfig holds the connection settings for an SMTP dispatcher.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sendMailFunc matches smtp.SendMail, injectable for tests.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPDispatcher sends reset emails through an SMTP relay.
type SMTPDispatcher struct {
	cfg      SMTPConfig
	logger   *slog.Logger
	sendMail sendMailFunc
}

// NewSMTPDispatcher creates a dispatcher for the given SMTP relay.
func NewSMTPDispatcher(cfg SMTPConfig, logger *slog.Logger) (*SMTPDispatcher, error) {
	if cfg.Host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp from address is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPDispatcher{cfg: cfg, logger: logger, sendMail: smtp.SendMail}, nil
}

const messageBoundary = "----=_RESET_EMAIL_BOUNDARY"

// SendPasswordReset emails a reset link to the given address.
func (d *SMTPDispatcher) SendPasswordReset(ctx context.Context, to, resetLink string) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("recipient", to).Wrap(err)
	}

	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)
	var auth smtp.Auth
	if d.cfg.Username != "" {
		auth = smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
	}

	msg := buildResetMessage(d.cfg.From, to, resetLink)
	if err := d.sendMail(addr, auth, d.cfg.From, []string{to}, msg); err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("recipient", to).Wrap(err)
	}

	d.logger.Info("password reset email sent", "recipient", to)
	return nil
}

// buildResetMessage assembles a multipart plain+HTML reset email.
func buildResetMessage(from, to, resetLink string) []byte {
	// Strip CRLF from interpolated values to prevent header injection.
	safe := func(s string) string {
		return strings.ReplaceAll(strings.ReplaceAll(strings.TrimSpace(s), "\r", ""), "\n", "")
	}
	to = safe(to)
	resetLink = safe(resetLink)

	plainBody := fmt.Sprintf(
		"Hello,\n\n"+
			"A password reset was requested for your SafeChain account.\n"+
			"Use the link below within one hour to choose a new password:\n%s\n\n"+
			"If you did not request this, you can ignore this email.\n",
		resetLink,
	)

	htmlBody := fmt.Sprintf(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Password Reset</title></head>
<body>
<p>Hello,</p>
<p>A password reset was requested for your SafeChain account.</p>
<p><a href="%s">Reset my password</a></p>
<p>This link expires in one hour. If you did not request this, you can ignore this email.</p>
</body>
</html>`, resetLink)

	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: SafeChain password reset\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: multipart/alternative; boundary=\"" + messageBoundary + "\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString("--" + messageBoundary + "\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	sb.WriteString(plainBody)
	sb.WriteString("\r\n--" + messageBoundary + "\r\n")
	sb.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	sb.WriteString(htmlBody)
	sb.WriteString("\r\n--" + messageBoundary + "--\r\n")
	return []byte(sb.String())
}

// LogDispatcher logs reset links instead of sending email. Used when no SMTP
// relay is configured, typically in development.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a dispatcher that only logs.
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

// SendPasswordReset logs the reset link.
func (d *LogDispatcher) SendPasswordReset(_ context.Context, to, resetLink string) error {
	d.logger.Info("password reset email (not sent, smtp unconfigured)",
		"recipient", to,
		"reset_link", resetLink,
	)
	return nil
}

var (
	_ Dispatcher = (*SMTPDispatcher)(nil)
	_ Dispatcher = (*LogDispatcher)(nil)
)
