// Package mailer delivers password-reset codes over SMTP.
package mailer

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go-brokerage-crm/internal/config"
)

// Mailer sends transactional mail.
type Mailer interface {
	SendPasswordOTP(to, name, code string, expires time.Time) error
	Enabled() bool
}

// New returns an SMTP mailer, or a mailer that only logs when SMTP is not
// configured.
func New(cfg config.SMTPConfig, logger *log.Logger) Mailer {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.From = strings.TrimSpace(cfg.From)
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	if cfg.Security == "" {
		cfg.Security = "starttls"
	}
	if cfg.Host == "" || cfg.From == "" {
		logger.Printf("mailer disabled host_set=%t from_set=%t", cfg.Host != "", cfg.From != "")
		return &logMailer{logger: logger}
	}
	logger.Printf("mailer enabled host=%s port=%s security=%s user=%s", cfg.Host, cfg.Port, cfg.Security, mask(cfg.User))
	return &smtpMailer{cfg: cfg}
}

type logMailer struct {
	logger *log.Logger
}

func (m *logMailer) Enabled() bool { return false }

// SendPasswordOTP never logs the code itself.
func (m *logMailer) SendPasswordOTP(to, _, _ string, expires time.Time) error {
	m.logger.Printf("mailer disabled; dropped password otp to=%s expires=%s", mask(to), expires.Format(time.RFC3339))
	return nil
}

type smtpMailer struct {
	cfg config.SMTPConfig
}

func (m *smtpMailer) Enabled() bool { return true }

func (m *smtpMailer) SendPasswordOTP(to, name, code string, expires time.Time) error {
	body := fmt.Sprintf("Hello %s,\n\nYour CRM password reset code is %s.\nIt expires at %s and can be used once.\n\nIf you did not ask for a reset you can ignore this message.",
		name, code, expires.Format("02 Jan 2006 15:04 MST"))
	return m.send(to, compose(m.cfg.From, to, "Your password reset code", body))
}

func (m *smtpMailer) send(to string, msg []byte) error {
	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	if m.cfg.Security == "none" {
		return smtp.SendMail(addr, nil, m.cfg.From, []string{to}, msg)
	}

	var client *smtp.Client
	var err error
	if m.cfg.Security == "ssl" || m.cfg.Security == "smtps" {
		conn, dialErr := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.Host})
		if dialErr != nil {
			return dialErr
		}
		client, err = smtp.NewClient(conn, m.cfg.Host)
	} else {
		client, err = smtp.Dial(addr)
		if err == nil {
			if ok, _ := client.Extension("STARTTLS"); ok {
				err = client.StartTLS(&tls.Config{ServerName: m.cfg.Host})
			}
		}
	}
	if err != nil {
		if client != nil {
			client.Close()
		}
		return fmt.Errorf("smtp connect: %w", err)
	}
	defer client.Close()

	if m.cfg.User != "" && m.cfg.Pass != "" {
		if err := client.Auth(smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(m.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func compose(from, to, subject, body string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(body)
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func mask(s string) string {
	switch {
	case s == "":
		return "(none)"
	case len(s) <= 2:
		return "***"
	default:
		return s[:1] + "***" + s[len(s)-1:]
	}
}
