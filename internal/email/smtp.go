// Package email envía correo saliente del servicio (reportes programados).
package email

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/reviewflow/internal/observability/logger"
)

// Sender abstrae el envío de un correo. El dispatcher depende de esta
// interfaz, no de SMTP.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

// SMTPConfig contiene la configuración para conectarse a un servidor SMTP.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	TLSMode   string // "auto" | "starttls" | "ssl" | "none"
}

// SMTPSender implementa Sender usando SMTP.
type SMTPSender struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	TLSMode            string
	InsecureSkipVerify bool
}

// FromConfig crea un SMTPSender desde SMTPConfig.
func FromConfig(cfg SMTPConfig) *SMTPSender {
	s := &SMTPSender{
		Host:    cfg.Host,
		Port:    cfg.Port,
		From:    cfg.FromEmail,
		User:    cfg.Username,
		Pass:    cfg.Password,
		TLSMode: "auto",
	}
	if cfg.TLSMode != "" {
		s.TLSMode = cfg.TLSMode
	}
	return s
}

// Send envía un email con contenido HTML y texto plano.
func (s *SMTPSender) Send(to, subject, htmlBody, textBody string) error {
	log := logger.L().With(
		logger.Component("email.smtp"),
		logger.String("host", s.Host),
		logger.String("to", to),
	)

	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	// Preferimos multipart/alternative (txt + html)
	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify, // solo dev
	}

	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify}
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}

	if err := d.DialAndSend(m); err != nil {
		log.Error("smtp send failed", logger.Err(err))
		return fmt.Errorf("smtp send: %w", err)
	}

	log.Debug("email sent")
	return nil
}
