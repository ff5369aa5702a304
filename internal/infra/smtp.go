package infra

import (
	"bytes"
	"errors"
	"fmt"
	"net/smtp"
	"net/textproto"

	"pickupshop/internal/config"

	"github.com/jordan-wright/email"
)

var (
	ErrMailerNotConfigured = errors.New("mailer: SMTP_HOST is not configured")
	ErrMailBuild           = errors.New("mailer: cannot build message")
)

// IsTransientMailError reports whether err may go away on its own: network
// failures and 4xx replies do, 5xx rejections and local setup errors do not.
func IsTransientMailError(err error) bool {
	if err == nil || errors.Is(err, ErrMailerNotConfigured) || errors.Is(err, ErrMailBuild) {
		return false
	}
	var reply *textproto.Error
	if errors.As(err, &reply) {
		return reply.Code < 500
	}
	return true
}

// Mailer wraps SMTP configuration for sending emails with attachments.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// Configured reports whether an SMTP host was provided.
func (m *Mailer) Configured() bool { return m.host != "" }

// Send delivers a plain-text mail, with an optional PDF attachment.
func (m *Mailer) Send(to, subject, body, attachmentName string, attachment []byte) error {
	if !m.Configured() {
		return ErrMailerNotConfigured
	}

	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if len(attachment) > 0 {
		if _, err := e.Attach(bytes.NewReader(attachment), attachmentName, "application/pdf"); err != nil {
			return fmt.Errorf("%w: attach %s: %v", ErrMailBuild, attachmentName, err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return e.Send(m.addr, auth)
}
