package mailer

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends the password-reset mail. Controllers depend on the
// interface so tests can swap in a recorder.
type Mailer interface {
	SendPasswordReset(to, resetURL string) error
}

// SMTPMailer talks plain SMTP with STARTTLS to the configured relay.
type SMTPMailer struct {
	Host    string
	Port    string
	User    string
	Pass    string
	From    string
	AppName string
}

func NewSMTPMailer(host, port, user, pass, from, appName string) *SMTPMailer {
	return &SMTPMailer{
		Host:    host,
		Port:    port,
		User:    user,
		Pass:    pass,
		From:    from,
		AppName: appName,
	}
}

func (m *SMTPMailer) SendPasswordReset(to, resetURL string) error {
	if m.Host == "" || m.User == "" || m.Pass == "" {
		return errors.New("mailer: SMTP settings are missing")
	}

	subject := fmt.Sprintf("%s - Password reset", m.AppName)
	body := strings.Join([]string{
		"Hello,",
		"",
		"A password reset was requested for your account.",
		"Open the link below to choose a new password. The link expires in one hour.",
		"",
		resetURL,
		"",
		"If you did not request this reset, ignore this message.",
	}, "\r\n")

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", m.From),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	auth := smtp.PlainAuth("", m.User, m.Pass, m.Host)
	addr := m.Host + ":" + m.Port
	return smtp.SendMail(addr, auth, m.From, []string{to}, []byte(msg))
}
