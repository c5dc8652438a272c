package notify

import (
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"
)

// Mailer отправляет письма через SMTP.
type Mailer struct {
	from string
	send func(m *gomail.Message) error
}

func NewMailer(host string, port int, user, password, from string) *Mailer {
	d := gomail.NewDialer(host, port, user, password)
	if from == "" {
		from = user
	}
	return &Mailer{from: from, send: func(m *gomail.Message) error { return d.DialAndSend(m) }}
}

func (m *Mailer) Send(to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.send(msg); err != nil {
		return fmt.Errorf("send email %q: %w", subject, err)
	}
	slog.Debug("Email отправлен", "subject", subject, "recipients", len(to))
	return nil
}
