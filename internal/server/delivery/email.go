package delivery

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/dmitrijs2005/abateiq-edge/internal/server/models"
)

const (
	senderName         = "AbateIQ Website"
	emailFailure       = "Email delivery failed. Verify Email Routing, sender domain, and destination address."
	defaultSMTPTimeout = 10 * time.Second
)

// Mailer sends one raw RFC 5322 message.
type Mailer interface {
	Send(ctx context.Context, from string, to []string, msg []byte) error
}

// EmailSink notifies the sales inbox about a submission.
type EmailSink struct {
	mailer Mailer
	from   string
	to     string
}

func NewEmailSink(mailer Mailer, from, to string) *EmailSink {
	return &EmailSink{mailer: mailer, from: from, to: to}
}

func (s *EmailSink) Name() SinkName { return SinkEmail }

func (s *EmailSink) Attempt(ctx context.Context, sub Submission) error {
	msg, err := ComposeMessage(s.from, s.to, sub)
	if err == nil {
		err = s.mailer.Send(ctx, s.from, []string{s.to}, msg)
	}
	if err != nil {
		return &SinkError{Sink: SinkEmail, Message: emailFailure, Err: err}
	}
	return nil
}

// ComposeMessage renders the plain-text notification for sub.
func ComposeMessage(from, to string, sub Submission) ([]byte, error) {
	var (
		subject string
		lines   []string
	)
	switch v := sub.(type) {
	case *models.ContactSubmission:
		subject = "New AbateIQ demo request: " + v.Company
		lines = []string{
			"New contact form submission",
			"",
			"Name: " + v.Name,
			"Company: " + v.Company,
			"Email: " + v.Email,
			"Role: " + v.Role,
			"Company Size: " + v.CompanySize,
			"Primary Hazard: " + v.PrimaryHazard,
			"Message: " + orNone(v.Message),
		}
	case *models.WaitlistSubmission:
		subject = "New AbateIQ iOS waitlist signup: " + v.Organization
		lines = []string{
			"New iOS waitlist submission",
			"",
			"Name: " + v.Name,
			"Organization: " + v.Organization,
			"Email: " + v.Email,
			"Role: " + orNone(v.Role),
			"Phone: " + orNone(v.Phone),
			"Team Size: " + orNone(v.TeamSize),
			"Notes: " + orNone(v.Notes),
			"Source: " + v.SourceOrDefault(),
		}
	default:
		return nil, fmt.Errorf("unsupported submission %T", sub)
	}

	headers := []string{
		fmt.Sprintf("From: %s <%s>", senderName, headerValue(from)),
		"To: " + headerValue(to),
		"Subject: " + mime.QEncoding.Encode("utf-8", headerValue(subject)),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
	}

	body := strings.ReplaceAll(strings.Join(lines, "\n"), "\n", "\r\n")
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body + "\r\n"), nil
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}

// headerValue strips line breaks so form input cannot add headers.
func headerValue(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// SMTPMailer delivers through an SMTP relay, upgrading to TLS when the
// server offers STARTTLS.
type SMTPMailer struct {
	addr    string
	host    string
	auth    smtp.Auth
	timeout time.Duration
}

// NewSMTPMailer builds a mailer for addr (host:port). PLAIN auth is used
// when user is set.
func NewSMTPMailer(addr, user, password string, timeout time.Duration) *SMTPMailer {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}
	m := &SMTPMailer{addr: addr, host: host, timeout: timeout}
	if user != "" {
		m.auth = smtp.PlainAuth("", user, password, host)
	}
	return m
}

func (m *SMTPMailer) Send(ctx context.Context, from string, to []string, msg []byte) error {
	d := net.Dialer{Timeout: m.timeout}
	conn, err := d.DialContext(ctx, "tcp", m.addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(m.timeout)
	}
	_ = conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if m.auth != nil {
		if err := c.Auth(m.auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt: %w", err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	return c.Quit()
}
