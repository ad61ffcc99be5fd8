package mailer

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

// MailerInterface - контракт исходящей почты. Отправка fire-and-forget:
// ошибки логируются, но не влияют на основной сценарий.
type MailerInterface interface {
	Queue(to, subject, htmlBody string)
}

type message struct {
	to      string
	subject string
	body    string
}

// SMTPMailer кладет письма во внутреннюю очередь и отправляет их одной горутиной.
type SMTPMailer struct {
	addr   string
	auth   smtp.Auth
	from   string
	queue  chan message
	logger *zap.Logger
}

func NewSMTPMailer(host, port, username, password, from string, logger *zap.Logger) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	m := &SMTPMailer{
		addr:   host + ":" + port,
		auth:   auth,
		from:   from,
		queue:  make(chan message, 256),
		logger: logger.Named("mailer"),
	}
	go m.run()
	return m
}

func (m *SMTPMailer) Queue(to, subject, htmlBody string) {
	select {
	case m.queue <- message{to: to, subject: subject, body: htmlBody}:
	default:
		m.logger.Warn("Очередь почты переполнена, письмо отброшено", zap.String("to", to))
	}
}

func (m *SMTPMailer) run() {
	for msg := range m.queue {
		raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
			m.from, msg.to, msg.subject, msg.body)
		if err := smtp.SendMail(m.addr, m.auth, m.from, []string{msg.to}, []byte(raw)); err != nil {
			m.logger.Error("Не удалось отправить письмо", zap.String("to", msg.to), zap.Error(err))
		}
	}
}
