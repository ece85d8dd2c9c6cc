package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	gomail "github.com/go-mail/mail/v2"

	"github.com/roach88/coursenotify/internal/domain"
	"github.com/roach88/coursenotify/internal/notification"
)

// ErrNoAddress is returned when the recipient has no email address.
var ErrNoAddress = errors.New("recipient has no email address")

// ErrNotConfigured is returned by Send when no SMTP host or sender is set.
var ErrNotConfigured = errors.New("smtp not configured (host/from)")

// Config holds SMTP settings.
type Config struct {
	Host          string
	Port          int
	User          string
	Pass          string
	From          string // e.g. "Course Platform <no-reply@example.org>"
	SkipTLSVerify bool
}

// Dialer sends fully built messages. *gomail.Dialer implements it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender delivers notifications over SMTP. It implements dispatch.Mailer.
type Sender struct {
	from   string
	dialer Dialer
}

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithDialer replaces the SMTP dialer, e.g. with a recorder in tests.
func WithDialer(d Dialer) SenderOption {
	return func(s *Sender) {
		if d != nil {
			s.dialer = d
		}
	}
}

// NewSender builds a Sender for cfg. STARTTLS is mandatory.
func NewSender(cfg Config, opts ...SenderOption) *Sender {
	s := &Sender{from: cfg.From}
	if cfg.Host != "" {
		port := cfg.Port
		if port == 0 {
			port = 587
		}
		d := gomail.NewDialer(cfg.Host, port, cfg.User, cfg.Pass)
		d.StartTLSPolicy = gomail.MandatoryStartTLS
		d.TLSConfig = &tls.Config{
			ServerName:         cfg.Host,
			InsecureSkipVerify: cfg.SkipTLSVerify,
		}
		s.dialer = d
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send renders n and sends it to to.
func (s *Sender) Send(ctx context.Context, to domain.User, n notification.Notification) error {
	if to.Email == "" {
		return ErrNoAddress
	}
	if s.dialer == nil || s.from == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if n.Recipient == nil {
		r := to
		n.Recipient = &r
	}
	body, err := Render(n)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to.Email)
	m.SetHeader("Subject", Subject(n))
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send %s to user %d: %w", n.Type, to.ID, err)
	}
	return nil
}
