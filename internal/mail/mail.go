package mail

import (
	"fmt"
	"html"
	"log"

	"gopkg.in/gomail.v2"
)

// Mailer sends account emails.
type Mailer interface {
	SendWelcome(to, fullName, companyName string) error
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPMailer struct {
	dialer sender
	from   string
}

func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

func (s *SMTPMailer) welcomeMessage(to, fullName, companyName string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetAddressHeader("To", to, fullName)
	m.SetHeader("Subject", "Welcome to the Tender Portal")

	body := fmt.Sprintf(`
		<h2>Welcome, %s!</h2>
		<p>%s is now registered as a contractor on the Tender Portal.</p>
		<p>You will be notified here and in the portal when new tenders are published.</p>
	`, html.EscapeString(fullName), html.EscapeString(companyName))
	m.SetBody("text/html", body)
	return m
}

func (s *SMTPMailer) SendWelcome(to, fullName, companyName string) error {
	if err := s.dialer.DialAndSend(s.welcomeMessage(to, fullName, companyName)); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

// LogMailer only logs; used when SMTP is not configured.
type LogMailer struct{}

func (LogMailer) SendWelcome(to, fullName, companyName string) error {
	log.Printf("[mail] smtp disabled, skipping welcome email to %s", to)
	return nil
}
