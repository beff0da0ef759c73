package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"campus-notes-platform/internal/config"
	"campus-notes-platform/models"
)

// EmailSender notifies counselors and students about meeting requests.
// Notification failures are never fatal to the request that triggered them.
type EmailSender interface {
	SendMeetingRequested(meeting models.Meeting) error
	SendMeetingApproved(meeting models.Meeting) error
}

type SMTPEmailSender struct {
	config *config.Config
}

func NewSMTPEmailSender(cfg *config.Config) *SMTPEmailSender {
	return &SMTPEmailSender{config: cfg}
}

// SendMeetingRequested mails the configured admin addresses about a new
// meeting request.
func (s *SMTPEmailSender) SendMeetingRequested(meeting models.Meeting) error {
	if len(s.config.AdminEmails) == 0 {
		return fmt.Errorf("no admin recipients configured")
	}

	subject := fmt.Sprintf("New counseling request from %s", meeting.Name)
	htmlBody, textBody, err := renderMeetingEmail(requestedHTMLTemplate, requestedTextTemplate, meeting)
	if err != nil {
		return fmt.Errorf("failed to generate email content: %w", err)
	}

	return s.sendEmail(s.config.AdminEmails, subject, htmlBody, textBody)
}

// SendMeetingApproved mails the student that their meeting was approved.
func (s *SMTPEmailSender) SendMeetingApproved(meeting models.Meeting) error {
	if meeting.Email == "" {
		return fmt.Errorf("meeting has no student email")
	}

	subject := fmt.Sprintf("Your counseling meeting on %s is confirmed", meeting.PreferredDate)
	htmlBody, textBody, err := renderMeetingEmail(approvedHTMLTemplate, approvedTextTemplate, meeting)
	if err != nil {
		return fmt.Errorf("failed to generate email content: %w", err)
	}

	return s.sendEmail([]string{meeting.Email}, subject, htmlBody, textBody)
}

func renderMeetingEmail(htmlTpl, textTpl string, meeting models.Meeting) (htmlBody, textBody string, err error) {
	data := struct {
		models.Meeting
		TopicsJoined string
	}{
		Meeting:      meeting,
		TopicsJoined: strings.Join(meeting.Topics, ", "),
	}

	htmlT, err := template.New("html").Parse(htmlTpl)
	if err != nil {
		return "", "", err
	}
	textT, err := template.New("text").Parse(textTpl)
	if err != nil {
		return "", "", err
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := htmlT.Execute(&htmlBuf, data); err != nil {
		return "", "", err
	}
	if err := textT.Execute(&textBuf, data); err != nil {
		return "", "", err
	}

	return htmlBuf.String(), textBuf.String(), nil
}

func (s *SMTPEmailSender) sendEmail(recipients []string, subject, htmlBody, textBody string) error {
	auth := smtp.PlainAuth("", s.config.SMTPUser, s.config.SMTPPassword, s.config.SMTPHost)

	message := fmt.Sprintf(`From: %s
To: %s
Subject: %s
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="boundary123"

--boundary123
Content-Type: text/plain; charset=UTF-8

%s

--boundary123
Content-Type: text/html; charset=UTF-8

%s

--boundary123--`,
		s.config.SMTPFrom,
		strings.Join(recipients, ", "),
		subject,
		textBody,
		htmlBody)

	addr := fmt.Sprintf("%s:%s", s.config.SMTPHost, s.config.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.SMTPFrom, recipients, []byte(message))
}

const requestedHTMLTemplate = `<html><body>
<h2>New Counseling Request</h2>
<p><strong>{{.Name}}</strong> ({{.Email}}, {{.Phone}}) requested a meeting.</p>
<ul>
<li>Course: {{.Course}} - Year {{.Year}}</li>
<li>Preferred: {{.PreferredDate}} at {{.PreferredTime}}</li>
<li>Topics: {{.TopicsJoined}}</li>
</ul>
{{if .Message}}<p>Message: {{.Message}}</p>{{end}}
</body></html>`

const requestedTextTemplate = `New Counseling Request

{{.Name}} ({{.Email}}, {{.Phone}}) requested a meeting.

Course: {{.Course}} - Year {{.Year}}
Preferred: {{.PreferredDate}} at {{.PreferredTime}}
Topics: {{.TopicsJoined}}
{{if .Message}}
Message: {{.Message}}{{end}}`

const approvedHTMLTemplate = `<html><body>
<h2>Meeting Confirmed</h2>
<p>Hello {{.Name}},</p>
<p>Your counseling meeting has been approved.</p>
<ul>
<li>Date: {{.PreferredDate}}</li>
<li>Time: {{.PreferredTime}}</li>
<li>Topics: {{.TopicsJoined}}</li>
</ul>
<p>See you there!</p>
</body></html>`

const approvedTextTemplate = `Meeting Confirmed

Hello {{.Name}},

Your counseling meeting has been approved.

Date: {{.PreferredDate}}
Time: {{.PreferredTime}}
Topics: {{.TopicsJoined}}

See you there!`
