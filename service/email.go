package service

import (
	"fmt"

	mail "github.com/go-mail/mail/v2"
)

// Mailer delivers OTP mail. Delivery is best-effort everywhere it is used:
// callers log failures and carry on.
type Mailer interface {
	SendVerificationOTP(to, name, otp string) error
	SendPasswordResetOTP(to, otp string) error
}

// SMTPMailer sends mail over SMTP with mandatory STARTTLS.
type SMTPMailer struct {
	dialer *mail.Dialer
	sender string
}

func NewSMTPMailer(host string, port int, username, password, sender string) *SMTPMailer {
	d := mail.NewDialer(host, port, username, password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	return &SMTPMailer{dialer: d, sender: sender}
}

func (m *SMTPMailer) SendVerificationOTP(to, name, otp string) error {
	body := fmt.Sprintf(
		"<h1>Hello %s</h1><p>Verification code:</p><h2>%s</h2><p>Valid for 3 minutes only.</p>",
		name, otp,
	)
	return m.send(to, "Verify your email", body)
}

func (m *SMTPMailer) SendPasswordResetOTP(to, otp string) error {
	body := fmt.Sprintf("<p>Your password reset code is:</p><h2>%s</h2><p>Valid for 10 minutes only.</p>", otp)
	return m.send(to, "Reset Password Request", body)
}

func (m *SMTPMailer) send(to, subject, htmlBody string) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}
