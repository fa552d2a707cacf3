package mailer

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendSecurityAlert(toEmail, subject, headline, detail string) error
	SendWelcome(toEmail, name string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	frontendURL string
}

func NewEmailService(host string, port int, username, password, senderEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	frontendURL := os.Getenv("FRONTEND_URL")

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		frontendURL: frontendURL,
	}
}

func (s *emailService) SendSecurityAlert(toEmail, subject, headline, detail string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)

	settingsLink := fmt.Sprintf("%s/settings/security", s.frontendURL)

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>%s</h2>
			<p>%s</p>
			<p>Time: %s</p>
			<p>If this wasn't you, review your security settings immediately:</p>
			<a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Security Settings</a>
		</div>
	`, headline, detail, time.Now().UTC().Format(time.RFC1123), settingsLink)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send security alert to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Security alert sent to %s\n", toEmail)
	return nil
}

func (s *emailService) SendWelcome(toEmail, name string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Welcome to CoreVAI")

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Welcome, %s!</h2>
			<p>Your account is ready. Start a conversation any time:</p>
			<a href="%s" style="background-color: #4CAF50; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Open CoreVAI</a>
		</div>
	`, name, s.frontendURL)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send welcome to %s: %v\n", toEmail, err)
		return err
	}

	return nil
}
