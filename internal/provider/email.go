package provider

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/ismoilovdevml/webhook-bridge/internal/formatter"
)

// Email sends plain-text notifications over SMTP with AUTH PLAIN and
// opportunistic STARTTLS.
type Email struct {
	host      string
	port      string
	user      string
	password  string
	fromEmail string
	toEmails  []string
	deps      Deps
}

// sendMail is swapped out in tests; net/smtp has no injectable transport.
var sendMail = smtp.SendMail

func NewEmail(config map[string]string, deps Deps) (*Email, error) {
	host, err := required(config, "email", "smtp_host")
	if err != nil {
		return nil, err
	}
	user, err := required(config, "email", "smtp_user")
	if err != nil {
		return nil, err
	}
	password, err := required(config, "email", "smtp_password")
	if err != nil {
		return nil, err
	}
	toRaw, err := required(config, "email", "to_emails")
	if err != nil {
		return nil, err
	}

	var to []string
	for _, addr := range strings.Split(toRaw, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	if len(to) == 0 {
		return nil, &ConfigurationError{Provider: "email", Field: "to_emails"}
	}

	return &Email{
		host:      host,
		port:      optional(config, "smtp_port", "587"),
		user:      user,
		password:  password,
		fromEmail: optional(config, "from_email", user),
		toEmails:  to,
		deps:      deps,
	}, nil
}

func (e *Email) Send(ctx context.Context, msg formatter.Message) error {
	if msg.Text == "" {
		return &SendError{Provider: "email", Reason: "message text is empty"}
	}

	subject := "Git Notification"
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		e.fromEmail, strings.Join(e.toEmails, ", "), subject, msg.Text)

	auth := smtp.PlainAuth("", e.user, e.password, e.host)
	addr := e.host + ":" + e.port

	done := make(chan error, 1)
	go func() {
		done <- sendMail(addr, auth, e.fromEmail, e.toEmails, []byte(body))
	}()

	select {
	case <-ctx.Done():
		return &SendError{Provider: "email", Reason: ctx.Err().Error()}
	case err := <-done:
		if err != nil {
			return &SendError{Provider: "email", Reason: err.Error()}
		}
		return nil
	}
}

func (e *Email) TestConnection(ctx context.Context) error {
	return e.Send(ctx, formatter.Message{Text: "Test connection from Webhook Bridge"})
}
