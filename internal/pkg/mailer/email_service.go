package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"time"

	"gopkg.in/gomail.v2"
)

// Escalation is what the on-call operator sees. It carries hashes, not
// the conversation, so the mail never holds user text.
type Escalation struct {
	EventID     string
	SessionHash string
	Stage       string
	Rule        string
	OccurredAt  time.Time
}

type IEmailService interface {
	SendEscalation(toEmail string, esc Escalation) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderName string) IEmailService {
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: username,
		senderName:  senderName,
	}
}

var escalationTemplate = template.Must(template.New("escalation").Parse(`
	<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
		<h2 style="color: #C62828;">Emergency conversation detected</h2>
		<p>A chat session was routed to the emergency stage and the user was told to contact emergency services.</p>
		<table style="border-collapse: collapse;">
			<tr><td style="padding: 4px 12px 4px 0;"><b>Session</b></td><td>{{.SessionHash}}</td></tr>
			<tr><td style="padding: 4px 12px 4px 0;"><b>Rule</b></td><td>{{.Rule}}</td></tr>
			<tr><td style="padding: 4px 12px 4px 0;"><b>Time</b></td><td>{{.OccurredAt.Format "2006-01-02 15:04:05 MST"}}</td></tr>
			<tr><td style="padding: 4px 12px 4px 0;"><b>Event</b></td><td>{{.EventID}}</td></tr>
		</table>
		<p>Open the operator console to follow the session live.</p>
	</div>
`))

func RenderEscalation(esc Escalation) (string, error) {
	var buf bytes.Buffer
	if err := escalationTemplate.Execute(&buf, esc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *emailService) SendEscalation(toEmail string, esc Escalation) error {
	body, err := RenderEscalation(esc)
	if err != nil {
		return fmt.Errorf("render escalation: %w", err)
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[Escalation] Emergency stage reached (%s)", esc.SessionHash))
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		log.Printf("[MAILER ERROR] Failed to send escalation to %s: %v", toEmail, err)
		return err
	}

	log.Printf("[MAILER] Escalation %s sent to %s", esc.EventID, toEmail)
	return nil
}
