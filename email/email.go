// Package email sends transactional mail over plain SMTP, so the
// storefront works against any relay reachable from the deployment.
package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

type Links struct {
	RecoveryURL string
}

type Email struct {
	address  string
	password string
	host     string
	port     int
	links    Links
}

func New(address string, password string, host string, port int, links Links) *Email {
	return &Email{
		address:  address,
		password: password,
		host:     host,
		port:     port,
		links:    links,
	}
}

// SendRecovery mails a password recovery link carrying the plaintext
// token.
func (e *Email) SendRecovery(to string, token string) error {
	link := fmt.Sprintf("%s?token=%s", e.links.RecoveryURL, token)

	subject := "Reset your password"
	body := fmt.Sprintf(
		"Someone (hopefully you) requested a password reset.\r\n\r\n"+
			"Follow this link to choose a new password:\r\n%s\r\n\r\n"+
			"If you didn't request this, you can ignore this email.\r\n",
		link,
	)

	return e.send(to, subject, body)
}

func (e *Email) send(to string, subject string, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", e.address)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.password != "" {
		auth = smtp.PlainAuth("", e.address, e.password, e.host)
	}

	if err := smtp.SendMail(addr, auth, e.address, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}

	return nil
}
