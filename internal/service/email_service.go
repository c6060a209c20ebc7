package service

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
)

// ==============================================
// EMAIL NOTIFICATION CHANNEL
// ==============================================

// SMTPMailer delivers codes over SMTP. Errors surface to the caller,
// which absorbs them into the fallback log.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	auth := smtp.PlainAuth("", m.username, m.password, m.host)

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body))

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// LogMailer is the dev-mode channel: it prints instead of sending.
// Never use outside local development, it leaks the code to stdout.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	log.Printf("[MAIL] To: %s | Subject: %s", to, subject)
	log.Printf("[MAIL] %s", body)
	return nil
}

// ==============================================
// MESSAGE TEMPLATE
// ==============================================

// OTPMessage builds the subject and body for a code delivery
func OTPMessage(code string) (subject, body string) {
	subject = "OTP for Secure Payment Verification"
	body = fmt.Sprintf(`Hello,

Your OTP for payment is %s. It is valid for 10 minutes.

Never share this OTP with anyone. If you did not initiate this
transaction, contact your bank immediately.

NextPay`, code)
	return subject, body
}
