// Package mail delivers transactional email for account flows.
package mail

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"
)

// Sender delivers account mail. The SMTP implementation is used in
// production; development falls back to logging.
type Sender interface {
	SendConfirmation(to, name, confirmURL string) error
	SendReviewResult(to, name string, approved bool) error
}

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender builds an SMTPSender for the given relay.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// SendConfirmation mails the email-verification link to a new photographer.
func (s *SMTPSender) SendConfirmation(to, name, confirmURL string) error {
	body := fmt.Sprintf(`<html><body>
<p>Hi %s, welcome to youpai.</p>
<p>Please <a href=%q>confirm your email address</a> to finish registration.
Once confirmed, upload at least two collections so we can review your portfolio;
the review result will be mailed to you.</p>
</body></html>`, name, confirmURL)
	return s.send(to, "youpai photographer registration", body)
}

// SendReviewResult mails the portfolio review outcome.
func (s *SMTPSender) SendReviewResult(to, name string, approved bool) error {
	subject := "youpai review result"
	var body string
	if approved {
		body = fmt.Sprintf(`<html><body>
<p>Hi %s, congratulations — your portfolio has been approved and your
photographer profile is now listed on youpai.</p>
</body></html>`, name)
	} else {
		body = fmt.Sprintf(`<html><body>
<p>Hi %s, unfortunately your portfolio was not approved this time.
You are welcome to update your collections and submit again.</p>
</body></html>`, name)
	}
	return s.send(to, subject, body)
}

func (s *SMTPSender) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogSender logs mail instead of sending it. Used outside production.
type LogSender struct{}

// SendConfirmation logs the confirmation link.
func (LogSender) SendConfirmation(to, name, confirmURL string) error {
	log.Printf("[mail] confirmation for %s <%s>: %s", name, to, confirmURL)
	return nil
}

// SendReviewResult logs the review outcome.
func (LogSender) SendReviewResult(to, name string, approved bool) error {
	log.Printf("[mail] review result for %s <%s>: approved=%t", name, to, approved)
	return nil
}
