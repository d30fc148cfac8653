// Package mailer implements email delivery as a single SMTP
// implementation behind a narrow interface, no templating engine —
// wrapping any outbound side-effect behind a narrow interface (the same
// shape as session.ChatBackend) so callers can be tested against a
// fake. No available library covers plain SMTP delivery meaningfully
// better than net/smtp, so this is built on it directly — a
// deliberate stdlib choice, not a gap.
package mailer

import (
	"fmt"
	"net/smtp"
)

// Mailer is the capability internal/httpapi depends on for verification
// and password-reset links. Delivery failures are recovered locally
// (§7: "log, proceed") — a Mailer error never fails the HTTP
// request that triggered the send.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail through a single configured SMTP relay.
type SMTPMailer struct {
	host string
	port string
	user string
	pass string
	from string
}

// NewSMTPMailer builds an SMTPMailer from the SMTP_* environment
// variables (§6). An empty host yields a Mailer whose Send
// always returns an error rather than silently succeeding; the
// internal/httpapi callers discard that error without logging it.
func NewSMTPMailer(host, port, user, pass, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, user: user, pass: pass, from: from}
}

// Send delivers a plaintext message via SMTP AUTH PLAIN. No HTML, no
// templating — callers build the body string themselves.
func (m *SMTPMailer) Send(to, subject, body string) error {
	if m.host == "" {
		return fmt.Errorf("mailer: no SMTP host configured")
	}
	addr := m.host + ":" + m.port
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.from, to, subject, body)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}

// NoopMailer discards every message and logs nothing — used when
// SMTP_HOST is unset so the server still boots; no "would have sent"
// record is kept anywhere.
type NoopMailer struct{}

func (NoopMailer) Send(to, subject, body string) error { return nil }
