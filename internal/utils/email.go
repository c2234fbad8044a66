package utils

import (
	"bytes"
	"context"
	"log"

	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Attachment struct {
	Name string
	Data []byte
}

// Sender est ce dont le reste de l'application a besoin pour envoyer un e-mail
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string, attachments ...Attachment) error
}

// Mailer envoie des e-mails HTML via SMTP
type Mailer struct {
	cfg SMTPConfig
}

func NewMailer(cfg SMTPConfig) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = "noreply@eldocam.com"
	}
	return &Mailer{cfg: cfg}
}

func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string, attachments ...Attachment) error {
	msg := mail.NewMsg()

	if err := msg.From(m.cfg.From); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	for _, a := range attachments {
		if err := msg.AttachReader(a.Name, bytes.NewReader(a.Data)); err != nil {
			return err
		}
	}

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSendWithContext(ctx, msg)
}
